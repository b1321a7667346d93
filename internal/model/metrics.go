package model

import (
	"fmt"
	"strings"
)

// ClassMetrics holds per-class scores.
type ClassMetrics struct {
	Label     string  `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Report is a multi-class classification summary.
type Report struct {
	Accuracy    float64        `json:"accuracy"`
	Classes     []ClassMetrics `json:"classes"`
	MacroAvg    ClassMetrics   `json:"macro_avg"`
	WeightedAvg ClassMetrics   `json:"weighted_avg"`
	Total       int            `json:"total"`
}

// Accuracy is the fraction of positions where yTrue and yPred agree.
func Accuracy(yTrue, yPred []int) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	c := 0
	for i := range yTrue {
		if i < len(yPred) && yTrue[i] == yPred[i] {
			c++
		}
	}
	return float64(c) / float64(len(yTrue))
}

// ClassificationReport computes one-vs-rest precision, recall and F1 for every
// class in classNames. Undefined ratios are reported as 0.
func ClassificationReport(yTrue, yPred []int, classNames []string) Report {
	k := len(classNames)
	tp := make([]int, k)
	fp := make([]int, k)
	fn := make([]int, k)
	for i := range yTrue {
		t, p := yTrue[i], -1
		if i < len(yPred) {
			p = yPred[i]
		}
		if t == p {
			if t >= 0 && t < k {
				tp[t]++
			}
			continue
		}
		if p >= 0 && p < k {
			fp[p]++
		}
		if t >= 0 && t < k {
			fn[t]++
		}
	}

	r := Report{
		Accuracy: Accuracy(yTrue, yPred),
		Total:    len(yTrue),
		Classes:  make([]ClassMetrics, k),
		MacroAvg: ClassMetrics{Label: "macro avg"},
		WeightedAvg: ClassMetrics{
			Label: "weighted avg",
		},
	}
	for c := 0; c < k; c++ {
		m := ClassMetrics{Label: classNames[c], Support: tp[c] + fn[c]}
		if tp[c]+fp[c] > 0 {
			m.Precision = float64(tp[c]) / float64(tp[c]+fp[c])
		}
		if m.Support > 0 {
			m.Recall = float64(tp[c]) / float64(m.Support)
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		r.Classes[c] = m

		r.MacroAvg.Precision += m.Precision
		r.MacroAvg.Recall += m.Recall
		r.MacroAvg.F1 += m.F1
		w := float64(m.Support)
		r.WeightedAvg.Precision += w * m.Precision
		r.WeightedAvg.Recall += w * m.Recall
		r.WeightedAvg.F1 += w * m.F1
	}
	if k > 0 {
		r.MacroAvg.Precision /= float64(k)
		r.MacroAvg.Recall /= float64(k)
		r.MacroAvg.F1 /= float64(k)
	}
	support := 0
	for _, m := range r.Classes {
		support += m.Support
	}
	r.MacroAvg.Support = support
	r.WeightedAvg.Support = support
	if support > 0 {
		r.WeightedAvg.Precision /= float64(support)
		r.WeightedAvg.Recall /= float64(support)
		r.WeightedAvg.F1 /= float64(support)
	}
	return r
}

// String renders the report in the familiar four-column text layout.
func (r Report) String() string {
	width := len("weighted avg")
	for _, m := range r.Classes {
		if len(m.Label) > width {
			width = len(m.Label)
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%*s %9s %9s %9s %9s\n\n", width, "", "precision", "recall", "f1-score", "support")
	row := func(m ClassMetrics) {
		fmt.Fprintf(&b, "%*s %9.2f %9.2f %9.2f %9d\n", width, m.Label, m.Precision, m.Recall, m.F1, m.Support)
	}
	for _, m := range r.Classes {
		row(m)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%*s %9s %9s %9.2f %9d\n", width, "accuracy", "", "", r.Accuracy, r.Total)
	row(r.MacroAvg)
	row(r.WeightedAvg)
	return b.String()
}
