package network

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"

	"gonum.org/v1/gonum/mat"
)

type denseJSON struct {
	In         int        `json:"in"`
	Out        int        `json:"out"`
	Activation Activation `json:"activation"`
	Weights    []float64  `json:"weights"` // row-major, in x out
	Bias       []float64  `json:"bias"`
}

type networkJSON struct {
	Topology Topology    `json:"topology"`
	Dense    []denseJSON `json:"dense"`
}

func (n *Network) MarshalJSON() ([]byte, error) {
	v := networkJSON{Topology: n.topology}
	for _, d := range n.denses {
		v.Dense = append(v.Dense, denseJSON{
			In:         d.in,
			Out:        d.out,
			Activation: d.activation,
			Weights:    mat.DenseCopyOf(d.w.Value).RawMatrix().Data,
			Bias:       append([]float64(nil), d.b.Value.RawRowView(0)...),
		})
	}
	return json.Marshal(v)
}

// UnmarshalJSON restores a network. Dropout masks of the restored network
// draw from a fixed generator until SetDropoutSource is called.
func (n *Network) UnmarshalJSON(data []byte) error {
	var v networkJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if err := v.Topology.validate(); err != nil {
		return err
	}
	restored := build(v.Topology, rand.New(rand.NewPCG(0, 0)))
	if len(v.Dense) != len(restored.denses) {
		return fmt.Errorf("network: topology has %d dense layers, file has %d", len(restored.denses), len(v.Dense))
	}
	for i, d := range restored.denses {
		src := v.Dense[i]
		if src.In != d.in || src.Out != d.out || src.Activation != d.activation ||
			len(src.Weights) != d.in*d.out || len(src.Bias) != d.out {
			return fmt.Errorf("network: dense layer %d does not match the topology", i)
		}
		d.w.Value.Copy(mat.NewDense(d.in, d.out, src.Weights))
		d.b.Value.SetRow(0, src.Bias)
	}
	*n = *restored
	return nil
}

// Save writes the network as JSON.
func (n *Network) Save(path string) error {
	data, err := json.MarshalIndent(n, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Load reads a network written by Save.
func Load(path string) (*Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	n := &Network{}
	if err := json.Unmarshal(data, n); err != nil {
		return nil, fmt.Errorf("network: %s: %w", path, err)
	}
	return n, nil
}
