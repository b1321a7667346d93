// Package pipeline ties the encoders and models together: it trains and
// evaluates a variant, persists the result as a single artifact bundle and
// serves predictions from a loaded bundle.
package pipeline

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"name-origin/internal/features"
	"name-origin/internal/labels"
	"name-origin/internal/model"
)

// FormatVersion is bumped whenever the on-disk bundle layout changes.
const FormatVersion = 1

// Variant selects the model family.
type Variant string

const (
	VariantRecurrent Variant = "recurrent"
	VariantForest    Variant = "forest"
)

// ParseVariant accepts the variant names used in config and on the CLI.
func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case VariantRecurrent, "lstm":
		return VariantRecurrent, nil
	case VariantForest, "rf", "random_forest":
		return VariantForest, nil
	}
	return "", fmt.Errorf("unknown model variant %q", s)
}

// ArtifactMismatchError reports a bundle whose pieces do not fit together.
type ArtifactMismatchError struct {
	BundleID string
	Reason   string
}

func (e *ArtifactMismatchError) Error() string {
	if e.BundleID == "" {
		return "artifact mismatch: " + e.Reason
	}
	return fmt.Sprintf("artifact mismatch in bundle %s: %s", e.BundleID, e.Reason)
}

// Manifest describes a bundle without its weights.
type Manifest struct {
	ID            string    `json:"id"`
	FormatVersion int       `json:"format_version"`
	Variant       Variant   `json:"variant"`
	CreatedAt     time.Time `json:"created_at"`
	Classes       []string  `json:"classes"`
	InputWidth    int       `json:"input_width"`
	SeqLen        int       `json:"seq_len,omitempty"`
	Accuracy      float64   `json:"accuracy"`
	TrainSize     int       `json:"train_size"`
	TestSize      int       `json:"test_size"`
}

// Bundle is a trained model together with the exact encoders it was trained
// with. A loaded bundle is read-only and safe for concurrent use.
type Bundle struct {
	Manifest Manifest

	labels *labels.Encoder
	seq    *features.SequenceEncoder
	tfidf  *features.TFIDFVectorizer
	net    *model.RecurrentNetwork
	forest *model.RandomForest
}

// bundleFile is the gob wire form of a Bundle.
type bundleFile struct {
	Manifest  Manifest
	Sequence  *features.SequenceEncoder
	NGrams    *features.TFIDFVectorizer
	Recurrent *model.RecurrentSnapshot
	Forest    *model.RandomForest
}

// Labels returns the label encoder stored in the bundle.
func (b *Bundle) Labels() *labels.Encoder { return b.labels }

func (b *Bundle) mismatch(format string, args ...any) error {
	return &ArtifactMismatchError{BundleID: b.Manifest.ID, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks that manifest, encoders and model agree with each other.
func (b *Bundle) Validate() error {
	m := b.Manifest
	if m.FormatVersion != FormatVersion {
		return b.mismatch("format version %d, want %d", m.FormatVersion, FormatVersion)
	}
	if b.labels == nil || b.labels.Len() == 0 {
		return b.mismatch("no label encoder")
	}
	if b.labels.Len() != len(m.Classes) {
		return b.mismatch("manifest lists %d classes, label encoder has %d", len(m.Classes), b.labels.Len())
	}
	classes := b.labels.Classes()
	for i := range classes {
		if classes[i] != m.Classes[i] {
			return b.mismatch("class %d is %q in manifest, %q in label encoder", i, m.Classes[i], classes[i])
		}
	}

	switch m.Variant {
	case VariantRecurrent:
		if b.seq == nil || b.net == nil {
			return b.mismatch("recurrent bundle needs a sequence encoder and a network")
		}
		if b.net.NumClasses() != b.labels.Len() {
			return b.mismatch("network has %d outputs, label encoder has %d classes", b.net.NumClasses(), b.labels.Len())
		}
		if b.net.InputWidth() != b.seq.VocabSize() {
			return b.mismatch("network embeds %d codes, encoder vocabulary is %d", b.net.InputWidth(), b.seq.VocabSize())
		}
		if b.net.Config.SeqLen != b.seq.SeqLen || m.SeqLen != b.seq.SeqLen {
			return b.mismatch("sequence length differs: manifest %d, encoder %d, network %d",
				m.SeqLen, b.seq.SeqLen, b.net.Config.SeqLen)
		}
		if m.InputWidth != b.seq.VocabSize() {
			return b.mismatch("manifest input width %d, encoder vocabulary %d", m.InputWidth, b.seq.VocabSize())
		}
	case VariantForest:
		if b.tfidf == nil || b.forest == nil {
			return b.mismatch("forest bundle needs an n-gram vectorizer and a forest")
		}
		if b.forest.NumClasses() != b.labels.Len() {
			return b.mismatch("forest has %d classes, label encoder has %d", b.forest.NumClasses(), b.labels.Len())
		}
		if b.forest.InputWidth() != b.tfidf.Dim() || m.InputWidth != b.tfidf.Dim() {
			return b.mismatch("feature width differs: manifest %d, vectorizer %d, forest %d",
				m.InputWidth, b.tfidf.Dim(), b.forest.InputWidth())
		}
		if err := b.forest.Validate(); err != nil {
			return b.mismatch("%v", err)
		}
	default:
		return b.mismatch("unknown variant %q", m.Variant)
	}
	return nil
}

// MarshalBinary encodes the bundle with gob.
func (b *Bundle) MarshalBinary() ([]byte, error) {
	f := bundleFile{Manifest: b.Manifest, Sequence: b.seq, NGrams: b.tfidf, Forest: b.forest}
	if b.net != nil {
		snap := b.net.Snapshot()
		f.Recurrent = &snap
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(f); err != nil {
		return nil, fmt.Errorf("encode bundle: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes a gob bundle and validates it.
func (b *Bundle) UnmarshalBinary(data []byte) error {
	var f bundleFile
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&f); err != nil {
		return fmt.Errorf("decode bundle: %w", err)
	}
	out := Bundle{Manifest: f.Manifest, seq: f.Sequence, tfidf: f.NGrams, forest: f.Forest}

	enc, err := labels.FromClasses(f.Manifest.Classes)
	if err != nil {
		return out.mismatch("%v", err)
	}
	out.labels = enc
	if out.seq != nil {
		if err := out.seq.Restore(); err != nil {
			return out.mismatch("sequence encoder: %v", err)
		}
	}
	if out.tfidf != nil {
		if err := out.tfidf.Restore(); err != nil {
			return out.mismatch("n-gram vectorizer: %v", err)
		}
	}
	if f.Recurrent != nil {
		net, err := model.RestoreRecurrent(*f.Recurrent)
		if err != nil {
			return out.mismatch("%v", err)
		}
		out.net = net
	}
	if err := out.Validate(); err != nil {
		return err
	}
	*b = out
	return nil
}

// Save writes the bundle to path, creating parent directories.
func (b *Bundle) Save(path string) error {
	data, err := b.MarshalBinary()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create bundle directory: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write bundle: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("write bundle: %w", err)
	}
	return nil
}

// Load reads and validates a bundle file.
func Load(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bundle: %w", err)
	}
	return Decode(data)
}

// Decode validates and returns a bundle from its binary form.
func Decode(data []byte) (*Bundle, error) {
	b := &Bundle{}
	if err := b.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return b, nil
}

// IsArtifactMismatch reports whether err is an ArtifactMismatchError.
func IsArtifactMismatch(err error) bool {
	var m *ArtifactMismatchError
	return errors.As(err, &m)
}
