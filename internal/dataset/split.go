package dataset

import (
	"math"
	"math/rand"
	"sort"
)

// Split divides records into train and test sets, stratified by origin so
// that each label keeps roughly the same share in both halves. Labels with a
// single record always stay in the training set.
func Split(records []Record, testRatio float64, seed int64) (train, test []Record) {
	if testRatio <= 0 || len(records) == 0 {
		return append([]Record(nil), records...), nil
	}
	if testRatio >= 1 {
		testRatio = 0.5
	}

	byOrigin := make(map[string][]int)
	var origins []string
	for i, r := range records {
		if _, ok := byOrigin[r.Origin]; !ok {
			origins = append(origins, r.Origin)
		}
		byOrigin[r.Origin] = append(byOrigin[r.Origin], i)
	}
	sort.Strings(origins)

	rnd := rand.New(rand.NewSource(seed))
	var trainIdx, testIdx []int
	for _, o := range origins {
		idx := byOrigin[o]
		rnd.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		nTest := int(math.Round(float64(len(idx)) * testRatio))
		if nTest >= len(idx) {
			nTest = len(idx) - 1
		}
		testIdx = append(testIdx, idx[:nTest]...)
		trainIdx = append(trainIdx, idx[nTest:]...)
	}

	// interleave labels rather than returning them grouped
	rnd.Shuffle(len(trainIdx), func(i, j int) { trainIdx[i], trainIdx[j] = trainIdx[j], trainIdx[i] })
	rnd.Shuffle(len(testIdx), func(i, j int) { testIdx[i], testIdx[j] = testIdx[j], testIdx[i] })

	for _, i := range trainIdx {
		train = append(train, records[i])
	}
	for _, i := range testIdx {
		test = append(test, records[i])
	}
	return train, test
}

// Names returns the name column of records.
func Names(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Name
	}
	return out
}

// Origins returns the origin column of records.
func Origins(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Origin
	}
	return out
}
