package transcode

import (
	"fmt"
	"strings"
)

// Preset names a fixed transcoding parameter set. The parameters are a
// property of the name alone, never of runtime state, so the same
// (original, preset) pair always requests the same operation.
type Preset string

const (
	// PresetWeb targets small, fast playback proxies.
	PresetWeb Preset = "web"
	// PresetReview targets higher-quality proxies for frame-accurate review.
	PresetReview Preset = "review"
)

type presetSpec struct {
	args []string
	ext  string
}

var presetSpecs = map[Preset]presetSpec{
	PresetWeb: {
		args: []string{
			"-c:v", "libx264",
			"-preset", "veryfast",
			"-crf", "28",
			"-vf", "scale=-2:720",
			"-c:a", "aac",
			"-b:a", "96k",
			"-movflags", "+faststart",
		},
		ext: ".mp4",
	},
	PresetReview: {
		args: []string{
			"-c:v", "libx264",
			"-preset", "slow",
			"-crf", "18",
			"-c:a", "flac",
		},
		ext: ".mkv",
	},
}

// ParsePreset validates a user-supplied preset name.
func ParsePreset(value string) (Preset, error) {
	preset := Preset(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := presetSpecs[preset]; !ok {
		return "", fmt.Errorf("unknown preset %q (want %s or %s)", value, PresetWeb, PresetReview)
	}
	return preset, nil
}

// Ext returns the container extension for files produced under this preset.
func (p Preset) Ext() string {
	return presetSpecs[p].ext
}

// Args returns a copy of the fixed transcoder arguments for this preset.
func (p Preset) Args() []string {
	spec := presetSpecs[p]
	args := make([]string, len(spec.args))
	copy(args, spec.args)
	return args
}

func (p Preset) String() string { return string(p) }
