package neuquant

import (
	"errors"
	"fmt"
	"image/color"
)

// Network sizing and learning constants. All arithmetic is fixed point.
const (
	maxNetSize = 256

	// Primes used to pick a sampling stride that does not divide the
	// pixel count.
	prime1 = 499
	prime2 = 491
	prime3 = 487
	prime4 = 503

	minPictureBytes = 3 * prime4

	netBiasShift = 4   // bias for colour values
	nCycles      = 100 // number of learning cycles

	intBiasShift = 16
	intBias      = 1 << intBiasShift
	gammaShift   = 10
	betaShift    = 10
	beta         = intBias >> betaShift
	betaGamma    = intBias << (gammaShift - betaShift)

	radiusBiasShift = 6
	radiusBias      = 1 << radiusBiasShift
	radiusDec       = 30

	alphaBiasShift = 10
	initAlpha      = 1 << alphaBiasShift

	radBiasShift   = 8
	radBias        = 1 << radBiasShift
	alphaRadBShift = alphaBiasShift + radBiasShift
	alphaRadBias   = 1 << alphaRadBShift

	maxDistance     = 1000
	minColors       = 2
	greenIndexSlots = 256
)

// Training defaults and limits.
const (
	DefaultColors = 256
	DefaultSample = 10
	MaxSample     = 30
)

var (
	// ErrEmptyInput is returned when there are no pixels to learn from.
	ErrEmptyInput = errors.New("neuquant: empty pixel buffer")
	// ErrPixelLength is returned when the buffer is not made of RGB triples.
	ErrPixelLength = errors.New("neuquant: pixel buffer length is not a multiple of 3")
	// ErrOptions is returned for out-of-range colors or sample values.
	ErrOptions = errors.New("neuquant: invalid options")
)

// Options controls one training run.
type Options struct {
	// Colors is the number of neurons (palette entries), 2..256.
	// Zero selects DefaultColors.
	Colors int
	// Sample is the subsampling stride, 1..30. 1 reads every pixel and gives
	// the best palette; larger values train faster on fewer pixels.
	// Zero selects DefaultSample.
	Sample int
}

func (o Options) withDefaults() (Options, error) {
	if o.Colors == 0 {
		o.Colors = DefaultColors
	}
	if o.Sample == 0 {
		o.Sample = DefaultSample
	}
	if o.Colors < minColors || o.Colors > maxNetSize {
		return o, fmt.Errorf("%w: colors %d outside %d..%d", ErrOptions, o.Colors, minColors, maxNetSize)
	}
	if o.Sample < 1 || o.Sample > MaxSample {
		return o, fmt.Errorf("%w: sample %d outside 1..%d", ErrOptions, o.Sample, MaxSample)
	}
	return o, nil
}

// neuron holds b, g, r and, after unbias, the neuron's original index.
type neuron [4]int

// Network is the result of one training run: a palette plus the lookup
// structures needed to map pixels onto it. A Network is owned by the caller
// that trained it and is safe for concurrent Map calls once returned.
type Network struct {
	netSize int
	sample  int
	pix     []byte

	network  []neuron
	netIndex [greenIndexSlots]int
	bias     []int
	freq     []int
	radPower []int
	used     []bool
}

// Train learns a palette for pix, a buffer of RGB triples.
func Train(pix []byte, opts Options) (*Network, error) {
	if len(pix) == 0 {
		return nil, ErrEmptyInput
	}
	if len(pix)%3 != 0 {
		return nil, fmt.Errorf("%w: got %d bytes", ErrPixelLength, len(pix))
	}
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	n := newNetwork(pix, opts.Colors, opts.Sample)
	n.learn()
	n.unbias()
	n.buildIndex()
	n.pix, n.bias, n.freq, n.radPower = nil, nil, nil, nil
	return n, nil
}

func newNetwork(pix []byte, netSize, sample int) *Network {
	n := &Network{
		netSize:  netSize,
		sample:   sample,
		pix:      pix,
		network:  make([]neuron, netSize),
		bias:     make([]int, netSize),
		freq:     make([]int, netSize),
		radPower: make([]int, netSize>>3+1),
		used:     make([]bool, netSize),
	}
	for i := range n.network {
		v := (i << (netBiasShift + 8)) / netSize
		n.network[i] = neuron{v, v, v, 0}
		n.freq[i] = intBias / netSize
	}
	return n
}

// Len returns the number of palette entries.
func (n *Network) Len() int { return n.netSize }

// Used reports whether neuron i won at least one contest during training.
// Map only ever returns used indices.
func (n *Network) Used(i int) bool {
	return i >= 0 && i < n.netSize && n.used[i]
}

// ColorMap returns the palette as RGB triples in neuron order, suitable as
// the body of a GIF color table.
func (n *Network) ColorMap() []byte {
	index := make([]int, n.netSize)
	for i := range n.network {
		index[n.network[i][3]] = i
	}
	out := make([]byte, 0, 3*n.netSize)
	for i := 0; i < n.netSize; i++ {
		p := n.network[index[i]]
		out = append(out, byte(p[2]), byte(p[1]), byte(p[0]))
	}
	return out
}

// Palette returns the palette as color.RGBA entries in neuron order.
func (n *Network) Palette() color.Palette {
	cm := n.ColorMap()
	pal := make(color.Palette, n.netSize)
	for i := range pal {
		pal[i] = color.RGBA{R: cm[3*i], G: cm[3*i+1], B: cm[3*i+2], A: 0xff}
	}
	return pal
}

// Map returns the index of the used palette entry closest to (r, g, b).
func (n *Network) Map(r, g, b uint8) int {
	gi, bi, ri := int(g), int(b), int(r)
	bestd := maxDistance
	best := -1
	i := n.netIndex[gi]
	j := i - 1

	for i < n.netSize || j >= 0 {
		if i < n.netSize {
			p := &n.network[i]
			dist := p[1] - gi
			if dist >= bestd {
				i = n.netSize
			} else {
				i++
				if n.used[p[3]] {
					dist += abs(p[0]-bi)
					if dist < bestd {
						dist += abs(p[2] - ri)
						if dist < bestd {
							bestd = dist
							best = p[3]
						}
					}
				}
			}
		}
		if j >= 0 {
			p := &n.network[j]
			dist := gi - p[1]
			if dist >= bestd {
				j = -1
			} else {
				j--
				if n.used[p[3]] {
					dist += abs(p[0]-bi)
					if dist < bestd {
						dist += abs(p[2] - ri)
						if dist < bestd {
							bestd = dist
							best = p[3]
						}
					}
				}
			}
		}
	}
	return best
}

// MapPixels maps every RGB triple in pix, writing indices into dst, which
// must hold len(pix)/3 bytes.
func (n *Network) MapPixels(dst, pix []byte) error {
	if len(pix)%3 != 0 {
		return fmt.Errorf("%w: got %d bytes", ErrPixelLength, len(pix))
	}
	if len(dst) != len(pix)/3 {
		return fmt.Errorf("neuquant: index buffer holds %d entries, want %d", len(dst), len(pix)/3)
	}
	for i, k := 0, 0; k < len(pix); i, k = i+1, k+3 {
		dst[i] = byte(n.Map(pix[k], pix[k+1], pix[k+2]))
	}
	return nil
}

func (n *Network) learn() {
	lengthCount := len(n.pix)
	sample := n.sample
	if lengthCount < minPictureBytes {
		sample = 1
	}
	alphaDec := 30 + (sample-1)/3
	samplePixels := lengthCount / (3 * sample)
	delta := samplePixels / nCycles
	if delta == 0 {
		delta = 1
	}
	alpha := initAlpha
	radius := (n.netSize >> 3) * radiusBias
	rad := radius >> radiusBiasShift
	if rad <= 1 {
		rad = 0
	}
	n.fillRadPower(rad, alpha)

	var step int
	switch {
	case lengthCount%prime1 != 0:
		step = 3 * prime1
	case lengthCount%prime2 != 0:
		step = 3 * prime2
	case lengthCount%prime3 != 0:
		step = 3 * prime3
	default:
		step = 3 * prime4
	}

	pos := 0
	for i := 0; i < samplePixels; {
		r := int(n.pix[pos]) << netBiasShift
		g := int(n.pix[pos+1]) << netBiasShift
		b := int(n.pix[pos+2]) << netBiasShift
		j := n.contest(b, g, r)

		n.alterSingle(alpha, j, b, g, r)
		if rad != 0 {
			n.alterNeighbours(rad, j, b, g, r)
		}

		pos = (pos + step) % lengthCount

		i++
		if i%delta == 0 {
			alpha -= alpha / alphaDec
			radius -= radius / radiusDec
			rad = radius >> radiusBiasShift
			if rad <= 1 {
				rad = 0
			}
			n.fillRadPower(rad, alpha)
		}
	}
}

func (n *Network) fillRadPower(rad, alpha int) {
	rad2 := rad * rad
	for i := 0; i < rad; i++ {
		n.radPower[i] = alpha * (((rad2 - i*i) * radBias) / rad2)
	}
}

// contest finds the closest neuron (minimum Manhattan distance) and updates
// the frequency and bias terms. It returns the bias-corrected winner, which
// lets rarely chosen neurons pull ahead of popular ones.
func (n *Network) contest(b, g, r int) int {
	bestd := int(^uint32(0) >> 1)
	bestBiasd := bestd
	bestPos := -1
	bestBiasPos := -1

	for i := range n.network {
		p := &n.network[i]
		dist := abs(p[0]-b) + abs(p[1]-g) + abs(p[2]-r)
		if dist < bestd {
			bestd = dist
			bestPos = i
		}
		biasDist := dist - (n.bias[i] >> (intBiasShift - netBiasShift))
		if biasDist < bestBiasd {
			bestBiasd = biasDist
			bestBiasPos = i
		}
		betaFreq := n.freq[i] >> betaShift
		n.freq[i] -= betaFreq
		n.bias[i] += betaFreq << gammaShift
	}
	n.freq[bestPos] += beta
	n.bias[bestPos] -= betaGamma
	n.used[bestBiasPos] = true
	return bestBiasPos
}

// alterSingle moves neuron i towards (b, g, r) by factor alpha.
func (n *Network) alterSingle(alpha, i, b, g, r int) {
	p := &n.network[i]
	p[0] -= (alpha * (p[0] - b)) / initAlpha
	p[1] -= (alpha * (p[1] - g)) / initAlpha
	p[2] -= (alpha * (p[2] - r)) / initAlpha
}

// alterNeighbours moves the neurons within rad of i towards (b, g, r),
// weighted by radPower. Bounds are clamped to the network before the loop.
func (n *Network) alterNeighbours(rad, i, b, g, r int) {
	lo := max(i-rad, -1)
	hi := min(i+rad, n.netSize)

	j, k, m := i+1, i-1, 1
	for j < hi || k > lo {
		a := n.radPower[m]
		m++
		if j < hi {
			p := &n.network[j]
			p[0] -= (a * (p[0] - b)) / alphaRadBias
			p[1] -= (a * (p[1] - g)) / alphaRadBias
			p[2] -= (a * (p[2] - r)) / alphaRadBias
			j++
		}
		if k > lo {
			p := &n.network[k]
			p[0] -= (a * (p[0] - b)) / alphaRadBias
			p[1] -= (a * (p[1] - g)) / alphaRadBias
			p[2] -= (a * (p[2] - r)) / alphaRadBias
			k--
		}
	}
}

// unbias converts neurons back to 0..255 and records their identity.
func (n *Network) unbias() {
	for i := range n.network {
		p := &n.network[i]
		p[0] = clamp8(p[0] >> netBiasShift)
		p[1] = clamp8(p[1] >> netBiasShift)
		p[2] = clamp8(p[2] >> netBiasShift)
		p[3] = i
	}
}

// buildIndex sorts the network by green and fills netIndex so that
// netIndex[g] is a good starting point for a search on green value g.
func (n *Network) buildIndex() {
	previousCol := 0
	startPos := 0
	maxNetPos := n.netSize - 1

	for i := 0; i < n.netSize; i++ {
		smallPos := i
		smallVal := n.network[i][1]
		for j := i + 1; j < n.netSize; j++ {
			if n.network[j][1] < smallVal {
				smallPos = j
				smallVal = n.network[j][1]
			}
		}
		if smallPos != i {
			n.network[i], n.network[smallPos] = n.network[smallPos], n.network[i]
		}
		if smallVal != previousCol {
			n.netIndex[previousCol] = (startPos + i) >> 1
			for j := previousCol + 1; j < smallVal; j++ {
				n.netIndex[j] = i
			}
			previousCol = smallVal
			startPos = i
		}
	}
	n.netIndex[previousCol] = (startPos + maxNetPos) >> 1
	for j := previousCol + 1; j < greenIndexSlots; j++ {
		n.netIndex[j] = maxNetPos
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func clamp8(x int) int {
	return max(0, min(255, x))
}
