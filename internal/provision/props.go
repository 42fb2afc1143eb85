package provision

import (
	"fmt"
	"strconv"
)

// Preset is a named workload profile for the root dataset properties.
type Preset string

const (
	PresetGeneral     Preset = "general"
	PresetVirtualHost Preset = "virtualhost"
	PresetBulkStorage Preset = "bulkstorage"
	PresetCustom      Preset = "custom"
)

// ArcMaxProperty carries the requested ARC ceiling on the root dataset as a
// ZFS user property (user properties must contain a colon). The post-install
// configuration step reads it back to write the modprobe option; zfs itself
// just stores it.
const ArcMaxProperty = "zforge:arc_max"

// PropertyIntent describes the requested dataset properties, either as a
// preset or, for PresetCustom, entirely through the explicit fields.
type PropertyIntent struct {
	Preset      Preset            `json:"preset"`
	Compression string            `json:"compression,omitempty"` // zstd|lz4|gzip|off
	ZstdLevel   int               `json:"zstdLevel,omitempty"`   // 1..19, only with zstd
	ArcMaxBytes uint64            `json:"arcMaxBytes,omitempty"` // 0 = let the engine decide
	Overrides   map[string]string `json:"overrides,omitempty"`   // verbatim property overrides
}

// presetProps returns the canonical property table for a preset. The values
// follow the tuning the generated system applies after install: zstd-3 all
// round, larger records for bulk data, smaller for VM images.
func presetProps(p Preset) map[string]string {
	switch p {
	case PresetVirtualHost:
		return map[string]string{
			"compression": "zstd-3",
			"recordsize":  "64K",
			"atime":       "off",
			"xattr":       "sa",
			"dnodesize":   "auto",
			ArcMaxProperty: strconv.FormatUint(8<<30, 10),
		}
	case PresetBulkStorage:
		return map[string]string{
			"compression": "zstd-6",
			"recordsize":  "1M",
			"atime":       "off",
			"xattr":       "sa",
			"dnodesize":   "auto",
		}
	case PresetGeneral:
		return map[string]string{
			"compression": "zstd-3",
			"recordsize":  "128K",
			"atime":       "off",
			"xattr":       "sa",
			"dnodesize":   "auto",
		}
	default:
		return map[string]string{}
	}
}

// PresetProperties returns the property table for a preset, for display to
// callers choosing one.
func PresetProperties(p Preset) map[string]string {
	return presetProps(p)
}

// Compile maps an intent to canonical dataset property pairs. It is pure:
// identical input always produces an identical map.
//
// Encoding rules applied uniformly:
//   - compression zstd with level L in 1..19 becomes the single token "zstd-L";
//     lz4, gzip and off pass through unchanged
//   - an ARC ceiling of zero compiles to the absence of the ARC property, not
//     a literal zero
func Compile(intent PropertyIntent) map[string]string {
	props := presetProps(intent.Preset)
	for k, v := range intent.Overrides {
		props[k] = v
	}
	if intent.Compression != "" {
		props["compression"] = encodeCompression(intent.Compression, intent.ZstdLevel)
	}
	if intent.ArcMaxBytes > 0 {
		props[ArcMaxProperty] = strconv.FormatUint(intent.ArcMaxBytes, 10)
	}
	if props[ArcMaxProperty] == "0" || props[ArcMaxProperty] == "" {
		delete(props, ArcMaxProperty)
	}
	return props
}

func encodeCompression(algo string, level int) string {
	if algo == "zstd" && level >= 1 && level <= 19 {
		return fmt.Sprintf("zstd-%d", level)
	}
	return algo
}

// ValidateIntent checks the parts of an intent Compile cannot express.
func ValidateIntent(intent PropertyIntent) []ValidationError {
	errs := []ValidationError{}
	switch intent.Preset {
	case PresetGeneral, PresetVirtualHost, PresetBulkStorage, PresetCustom:
	default:
		errs = append(errs, ValidationError{
			Field:   "properties.preset",
			Rule:    "preset.unknown",
			Message: fmt.Sprintf("unknown property preset %q", string(intent.Preset)),
		})
	}
	switch intent.Compression {
	case "", "zstd", "lz4", "gzip", "off":
	default:
		errs = append(errs, ValidationError{
			Field:   "properties.compression",
			Rule:    "compression.unknown",
			Message: fmt.Sprintf("unsupported compression %q", intent.Compression),
		})
	}
	if intent.Compression == "zstd" && intent.ZstdLevel != 0 && (intent.ZstdLevel < 1 || intent.ZstdLevel > 19) {
		errs = append(errs, ValidationError{
			Field:   "properties.zstdLevel",
			Rule:    "zstd.level",
			Message: fmt.Sprintf("zstd level must be between 1 and 19, got %d", intent.ZstdLevel),
		})
	}
	return errs
}

// RecommendArcMax picks an ARC ceiling from the host memory size, matching
// the tuning the installed system ships with. Hosts below 32 GiB get the
// conservative 8 GiB default.
func RecommendArcMax(totalBytes uint64) uint64 {
	switch {
	case totalBytes >= 64<<30:
		return 32 << 30
	case totalBytes >= 32<<30:
		return 20 << 30
	default:
		return 8 << 30
	}
}
