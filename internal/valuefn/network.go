package valuefn

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/mitchelldurbincs/selfplay-rl/internal/arena"
	"github.com/mitchelldurbincs/selfplay-rl/internal/common"
	"github.com/mitchelldurbincs/selfplay-rl/internal/experience"
)

// DefaultHidden is the hidden layout used when none is configured
var DefaultHidden = []int{24, 24}

type NetworkConfig struct {
	Features           int
	Actions            int
	Hidden             []int
	LearningRate       float64
	Discount           float64
	TargetSyncInterval int
	Seed               uint64
}

type layer struct {
	w *mat.Dense    // out x in
	b *mat.VecDense // out
}

func (l layer) clone() layer {
	return layer{w: mat.DenseCopyOf(l.w), b: mat.VecDenseCopyOf(l.b)}
}

// Network is a fully connected ReLU network with a linear output per action.
// It is trained by plain gradient descent on the squared error of the taken
// action's output only.
type Network struct {
	cfg    NetworkConfig
	shape  []int
	layers []layer

	// target is a frozen copy used for bootstrapping; nil when disabled
	target     []layer
	trainCalls int
}

var _ BatchLearner = (*Network)(nil)

func NewNetwork(cfg NetworkConfig) (*Network, error) {
	if err := common.RequirePositive("feature count", cfg.Features); err != nil {
		return nil, err
	}
	if err := common.RequirePositive("action count", cfg.Actions); err != nil {
		return nil, err
	}
	if err := common.RequireRate("learning rate", cfg.LearningRate); err != nil {
		return nil, err
	}
	if err := common.RequireRate("discount", cfg.Discount); err != nil {
		return nil, err
	}
	if err := common.RequireNonNegative("target sync interval", cfg.TargetSyncInterval); err != nil {
		return nil, err
	}
	if len(cfg.Hidden) == 0 {
		cfg.Hidden = DefaultHidden
	}
	for _, h := range cfg.Hidden {
		if err := common.RequirePositive("hidden width", h); err != nil {
			return nil, err
		}
	}

	shape := make([]int, 0, len(cfg.Hidden)+2)
	shape = append(shape, cfg.Features)
	shape = append(shape, cfg.Hidden...)
	shape = append(shape, cfg.Actions)

	src := rand.NewSource(cfg.Seed)
	n := &Network{cfg: cfg, shape: shape}
	for i := 0; i+1 < len(shape); i++ {
		in, out := shape[i], shape[i+1]
		// He initialization for ReLU inputs
		dist := distuv.Normal{Mu: 0, Sigma: math.Sqrt(2 / float64(in)), Src: src}
		data := make([]float64, out*in)
		for j := range data {
			data[j] = dist.Rand()
		}
		n.layers = append(n.layers, layer{w: mat.NewDense(out, in, data), b: mat.NewVecDense(out, nil)})
	}
	if cfg.TargetSyncInterval > 0 {
		n.syncTarget()
	}
	return n, nil
}

func (n *Network) ActionSize() int { return n.cfg.Actions }

// Shape returns the layer widths from input to output
func (n *Network) Shape() []int { return append([]int(nil), n.shape...) }

func (n *Network) input(s arena.State) (*mat.VecDense, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, s)
	}
	f := s.Features()
	if len(f) != n.cfg.Features {
		return nil, fmt.Errorf("%w: %d features, network expects %d", ErrInvalidState, len(f), n.cfg.Features)
	}
	return mat.NewVecDense(len(f), f), nil
}

// forward returns the activations of every layer (index 0 is the input) and
// the pre-activations of every non-input layer.
func forward(layers []layer, x *mat.VecDense) (acts, pre []*mat.VecDense) {
	acts = append(acts, x)
	a := x
	for i, l := range layers {
		out, _ := l.w.Dims()
		z := mat.NewVecDense(out, nil)
		z.MulVec(l.w, a)
		z.AddVec(z, l.b)
		pre = append(pre, z)

		next := mat.VecDenseCopyOf(z)
		if i < len(layers)-1 {
			for j := 0; j < out; j++ {
				if next.AtVec(j) < 0 {
					next.SetVec(j, 0)
				}
			}
		}
		acts = append(acts, next)
		a = next
	}
	return acts, pre
}

func output(layers []layer, x *mat.VecDense) []float64 {
	acts, _ := forward(layers, x)
	out := acts[len(acts)-1]
	values := make([]float64, out.Len())
	for i := range values {
		values[i] = out.AtVec(i)
	}
	return values
}

func (n *Network) Estimate(s arena.State) ([]float64, error) {
	x, err := n.input(s)
	if err != nil {
		return nil, err
	}
	return output(n.layers, x), nil
}

func (n *Network) BestAction(s arena.State) (arena.Action, error) {
	return bestAction(n, s)
}

// Train takes one gradient step on the batch and returns the mean squared
// error measured before the step. Targets bootstrap from the frozen copy when
// one is configured and from the live parameters otherwise.
func (n *Network) Train(batch []experience.Transition) (float64, error) {
	if len(batch) == 0 {
		return 0, fmt.Errorf("%w: empty batch", experience.ErrInvalidBatchSize)
	}

	bootstrap := n.layers
	if n.target != nil {
		bootstrap = n.target
	}

	grads := make([]layer, len(n.layers))
	for i, l := range n.layers {
		out, in := l.w.Dims()
		grads[i] = layer{w: mat.NewDense(out, in, nil), b: mat.NewVecDense(out, nil)}
	}

	scale := 2 / float64(len(batch))
	var loss float64
	for _, tr := range batch {
		if tr.Action < 0 || int(tr.Action) >= n.cfg.Actions {
			return 0, fmt.Errorf("%w: %d outside [0, %d)", arena.ErrInvalidAction, int(tr.Action), n.cfg.Actions)
		}
		x, err := n.input(tr.State)
		if err != nil {
			return 0, err
		}

		target := tr.Reward
		if !tr.Done {
			next, err := n.input(tr.NextState)
			if err != nil {
				return 0, err
			}
			target += n.cfg.Discount * floats.Max(output(bootstrap, next))
		}

		acts, pre := forward(n.layers, x)
		diff := acts[len(acts)-1].AtVec(int(tr.Action)) - target
		loss += diff * diff

		delta := mat.NewVecDense(n.cfg.Actions, nil)
		delta.SetVec(int(tr.Action), scale*diff)
		n.backprop(grads, acts, pre, delta)
	}

	for i := range n.layers {
		grads[i].w.Scale(-n.cfg.LearningRate, grads[i].w)
		n.layers[i].w.Add(n.layers[i].w, grads[i].w)
		n.layers[i].b.AddScaledVec(n.layers[i].b, -n.cfg.LearningRate, grads[i].b)
	}

	n.trainCalls++
	if n.target != nil && n.trainCalls%n.cfg.TargetSyncInterval == 0 {
		n.syncTarget()
	}

	return loss / float64(len(batch)), nil
}

// backprop accumulates the gradient of one sample into grads
func (n *Network) backprop(grads []layer, acts, pre []*mat.VecDense, delta *mat.VecDense) {
	for l := len(n.layers) - 1; l >= 0; l-- {
		grads[l].w.RankOne(grads[l].w, 1, delta, acts[l])
		grads[l].b.AddVec(grads[l].b, delta)
		if l == 0 {
			return
		}

		_, in := n.layers[l].w.Dims()
		prev := mat.NewVecDense(in, nil)
		prev.MulVec(n.layers[l].w.T(), delta)
		for j := 0; j < in; j++ {
			if pre[l-1].AtVec(j) <= 0 {
				prev.SetVec(j, 0)
			}
		}
		delta = prev
	}
}

func (n *Network) syncTarget() {
	n.target = make([]layer, len(n.layers))
	for i, l := range n.layers {
		n.target[i] = l.clone()
	}
}

func (n *Network) paramCount() int {
	total := 0
	for _, l := range n.layers {
		out, in := l.w.Dims()
		total += out*in + out
	}
	return total
}

// Snapshot flattens each layer as its row-major weights followed by its biases
func (n *Network) Snapshot() Snapshot {
	params := make([]float64, 0, n.paramCount())
	for _, l := range n.layers {
		out, in := l.w.Dims()
		for r := 0; r < out; r++ {
			for c := 0; c < in; c++ {
				params = append(params, l.w.At(r, c))
			}
		}
		for r := 0; r < out; r++ {
			params = append(params, l.b.AtVec(r))
		}
	}
	return Snapshot{Kind: KindApproximate, Shape: n.Shape(), Params: params}
}

func (n *Network) Restore(s Snapshot) error {
	if err := checkSnapshot(KindApproximate, n.shape, n.paramCount(), s); err != nil {
		return err
	}

	offset := 0
	for i, l := range n.layers {
		out, in := l.w.Dims()
		w := append([]float64(nil), s.Params[offset:offset+out*in]...)
		offset += out * in
		b := append([]float64(nil), s.Params[offset:offset+out]...)
		offset += out
		n.layers[i] = layer{w: mat.NewDense(out, in, w), b: mat.NewVecDense(out, b)}
	}
	if n.target != nil {
		n.syncTarget()
	}
	return nil
}
