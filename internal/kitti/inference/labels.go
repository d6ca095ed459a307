package inference

import (
	"fmt"
	"image/color"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/kittiscan/internal/fsutil"
)

// Metadata carries the label names and display colours published by the
// segmentation engine. Keys are canonical label codes.
type Metadata struct {
	Names  map[int]string
	Colors map[int]color.RGBA
}

// labelFile mirrors the semantic-kitti label configuration. Colours are
// stored blue-green-red.
type labelFile struct {
	Labels   map[int]string `yaml:"labels"`
	ColorMap map[int][]int  `yaml:"color_map"`
}

// LoadMetadata reads a semantic-kitti style YAML file.
func LoadMetadata(fsys fsutil.FileSystem, path string) (Metadata, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to read label config: %w", err)
	}
	return ParseMetadata(data)
}

// ParseMetadata decodes semantic-kitti style YAML.
func ParseMetadata(data []byte) (Metadata, error) {
	var lf labelFile
	if err := yaml.Unmarshal(data, &lf); err != nil {
		return Metadata{}, fmt.Errorf("failed to parse label config: %w", err)
	}
	if len(lf.Labels) == 0 {
		return Metadata{}, fmt.Errorf("label config has no labels")
	}

	meta := Metadata{
		Names:  make(map[int]string, len(lf.Labels)),
		Colors: make(map[int]color.RGBA, len(lf.ColorMap)),
	}
	for code, name := range lf.Labels {
		meta.Names[code] = name
	}
	for code, bgr := range lf.ColorMap {
		if len(bgr) != 3 {
			return Metadata{}, fmt.Errorf("color_map[%d]: want 3 components, got %d", code, len(bgr))
		}
		for _, v := range bgr {
			if v < 0 || v > 255 {
				return Metadata{}, fmt.Errorf("color_map[%d]: component %d out of range", code, v)
			}
		}
		meta.Colors[code] = color.RGBA{R: uint8(bgr[2]), G: uint8(bgr[1]), B: uint8(bgr[0]), A: 255}
	}
	return meta, nil
}

// DefaultMetadata returns the semantic-kitti names and colours for the
// canonical codes the decoder can produce.
func DefaultMetadata() Metadata {
	meta, err := ParseMetadata([]byte(defaultLabelYAML))
	if err != nil {
		panic(err)
	}
	return meta
}

const defaultLabelYAML = `
labels:
  0: unlabeled
  10: car
  11: bicycle
  15: motorcycle
  18: truck
  20: other-vehicle
  30: person
  31: bicyclist
  32: motorcyclist
  40: road
  44: parking
  48: sidewalk
  49: other-ground
  50: building
  51: fence
  70: vegetation
  71: trunk
  72: terrain
  80: pole
  81: traffic-sign
color_map:
  0: [0, 0, 0]
  10: [245, 150, 100]
  11: [245, 230, 100]
  15: [150, 60, 30]
  18: [180, 30, 80]
  20: [255, 0, 0]
  30: [30, 30, 255]
  31: [200, 40, 255]
  32: [90, 30, 150]
  40: [255, 0, 255]
  44: [255, 150, 255]
  48: [75, 0, 75]
  49: [75, 0, 175]
  50: [0, 200, 255]
  51: [50, 120, 255]
  70: [0, 175, 0]
  71: [0, 60, 135]
  72: [80, 240, 150]
  80: [150, 240, 255]
  81: [0, 0, 255]
`
