package index

import (
	"strings"

	"github.com/glorpus-work/srcmirror/pkg/errors"
	"github.com/glorpus-work/srcmirror/pkg/model"
)

// Variant selects which file-list block of a paragraph is read and how its
// lines are tokenized.
type Variant struct {
	Name string
	// FileListKey is the header that opens the file-list block, colon included.
	FileListKey string
	Algorithm   model.HashAlgorithm
}

// Known variants. VariantMD5 matches the classic "Files:" block.
var (
	VariantMD5        = Variant{Name: "md5", FileListKey: "Files:", Algorithm: model.AlgorithmMD5}
	VariantSHA1       = Variant{Name: "sha1", FileListKey: "Checksums-Sha1:", Algorithm: model.AlgorithmSHA1}
	VariantSHA256     = Variant{Name: "sha256", FileListKey: "Checksums-Sha256:", Algorithm: model.AlgorithmSHA256}
	VariantNoChecksum = Variant{Name: "none", FileListKey: "Files:", Algorithm: model.AlgorithmNone}
)

// Variants lists every supported variant in display order.
func Variants() []Variant {
	return []Variant{VariantMD5, VariantSHA1, VariantSHA256, VariantNoChecksum}
}

// VariantByName looks a variant up by its config name, which is the name of
// its digest or "none". An empty name selects VariantMD5.
func VariantByName(name string) (Variant, error) {
	if strings.TrimSpace(name) == "" {
		return VariantMD5, nil
	}
	algo, err := model.ParseHashAlgorithm(name)
	if err != nil {
		return Variant{}, errors.Wrapf(errors.ErrUnknownVariant, "%q", name)
	}
	for _, v := range Variants() {
		if v.Algorithm == algo {
			return v, nil
		}
	}
	return Variant{}, errors.Wrapf(errors.ErrUnknownVariant, "%q", name)
}

// HasChecksum reports whether data lines carry a digest column.
func (v Variant) HasChecksum() bool {
	return v.Algorithm != model.AlgorithmNone
}
