package model

import (
	"github.com/pixelform/studio/pkg/types"
)

// modelSpec describes where a model's weights live and how its tensors are
// shaped. Precision picks both the weight variant and the internal input
// resolution: higher precision means more weight bytes and a finer plane.
type modelSpec struct {
	inputName  string
	outputName string
	// weights and inputSize are keyed by precision.
	weights   map[types.Precision]string
	inputSize map[types.Precision]int
	// labels points at a synset-style label list (classifier only).
	labels   string
	channels int
	mean     [3]float32
	std      [3]float32
}

// Standard ImageNet normalization, shared by all three weighted models.
var (
	imagenetMean = [3]float32{0.485, 0.456, 0.406}
	imagenetStd  = [3]float32{0.229, 0.224, 0.225}
)

const weightsBase = "https://github.com/danielgatis/rembg/releases/download/v0.0.0"

var specs = map[types.ModelKind]modelSpec{
	types.ModelPortrait: {
		inputName:  "input.1",
		outputName: "output",
		weights: map[types.Precision]string{
			types.PrecisionHigh:   weightsBase + "/u2net_human_seg.onnx",
			types.PrecisionMedium: weightsBase + "/u2net_human_seg.onnx",
			types.PrecisionLow:    weightsBase + "/u2netp.onnx",
		},
		inputSize: map[types.Precision]int{
			types.PrecisionHigh:   480,
			types.PrecisionMedium: 320,
			types.PrecisionLow:    256,
		},
		channels: 1,
		mean:     imagenetMean,
		std:      imagenetStd,
	},
	types.ModelObject: {
		inputName:  "input.1",
		outputName: "output",
		weights: map[types.Precision]string{
			types.PrecisionHigh:   weightsBase + "/isnet-general-use.onnx",
			types.PrecisionMedium: weightsBase + "/u2net.onnx",
			types.PrecisionLow:    weightsBase + "/u2netp.onnx",
		},
		inputSize: map[types.Precision]int{
			types.PrecisionHigh:   513,
			types.PrecisionMedium: 385,
			types.PrecisionLow:    257,
		},
		// 21 PASCAL-VOC style labels; label 0 is background.
		channels: 21,
		mean:     imagenetMean,
		std:      imagenetStd,
	},
	types.ModelClassifier: {
		inputName:  "input",
		outputName: "output",
		weights: map[types.Precision]string{
			types.PrecisionHigh:   "https://github.com/onnx/models/raw/main/validated/vision/classification/mobilenet/model/mobilenetv2-12.onnx",
			types.PrecisionMedium: "https://github.com/onnx/models/raw/main/validated/vision/classification/mobilenet/model/mobilenetv2-10.onnx",
			types.PrecisionLow:    "https://github.com/onnx/models/raw/main/validated/vision/classification/mobilenet/model/mobilenetv2-7.onnx",
		},
		inputSize: map[types.Precision]int{
			types.PrecisionHigh:   224,
			types.PrecisionMedium: 224,
			types.PrecisionLow:    160,
		},
		labels:   "https://raw.githubusercontent.com/onnx/models/main/validated/vision/classification/synset.txt",
		channels: 1000,
		mean:     imagenetMean,
		std:      imagenetStd,
	},
}

func (s modelSpec) weightsFor(p types.Precision) string {
	if url, ok := s.weights[p]; ok {
		return url
	}
	return s.weights[types.PrecisionMedium]
}

func (s modelSpec) inputSizeFor(p types.Precision) int {
	if size, ok := s.inputSize[p]; ok {
		return size
	}
	return s.inputSize[types.PrecisionMedium]
}
