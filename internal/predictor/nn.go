package predictor

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Layer represents a fully-connected neural network layer.
type Layer struct {
	Weights [][]float64 `json:"weights"` // [out][in]
	Biases  []float64   `json:"biases"`
}

// Network is a feedforward neural network with ReLU hidden layers and linear output.
// It holds no per-call state, so a loaded network can be shared by concurrent callers.
type Network struct {
	Layers []Layer `json:"layers"`
}

// InputSize returns the width of the first layer.
func (n *Network) InputSize() int {
	if len(n.Layers) == 0 || len(n.Layers[0].Weights) == 0 {
		return 0
	}
	return len(n.Layers[0].Weights[0])
}

// OutputSize returns the width of the last layer.
func (n *Network) OutputSize() int {
	if len(n.Layers) == 0 {
		return 0
	}
	return len(n.Layers[len(n.Layers)-1].Weights)
}

// Validate checks that consecutive layers have matching dimensions.
func (n *Network) Validate() error {
	if len(n.Layers) == 0 {
		return errors.New("network has no layers")
	}
	prev := -1
	for i, l := range n.Layers {
		if len(l.Weights) == 0 {
			return fmt.Errorf("layer %d has no neurons", i)
		}
		if len(l.Biases) != len(l.Weights) {
			return fmt.Errorf("layer %d: %d biases for %d neurons", i, len(l.Biases), len(l.Weights))
		}
		in := len(l.Weights[0])
		for j, w := range l.Weights {
			if len(w) != in {
				return fmt.Errorf("layer %d neuron %d: %d weights, expected %d", i, j, len(w), in)
			}
		}
		if prev >= 0 && in != prev {
			return fmt.Errorf("layer %d expects %d inputs, previous layer has %d outputs", i, in, prev)
		}
		prev = len(l.Weights)
	}
	return nil
}

// Forward computes the network output.
// Hidden layers use ReLU; the output layer is linear.
func (n *Network) Forward(input []float64) []float64 {
	x := input
	for i := range n.Layers {
		l := &n.Layers[i]
		out := len(l.Weights)
		y := make([]float64, out)
		for j := 0; j < out; j++ {
			sum := l.Biases[j]
			for k, w := range l.Weights[j] {
				sum += w * x[k]
			}
			y[j] = sum
		}

		// ReLU for all layers except the last (linear output).
		if i < len(n.Layers)-1 {
			for j := range y {
				if y[j] < 0 {
					y[j] = 0
				}
			}
		}
		x = y
	}
	return x
}

// UnmarshalJSON deserializes network weights/biases and validates their shape.
func (n *Network) UnmarshalJSON(data []byte) error {
	var raw struct {
		Layers []Layer `json:"layers"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	n.Layers = raw.Layers
	return n.Validate()
}
