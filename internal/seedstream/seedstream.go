package seedstream

// #region constants

// Reserved stream indices. Each consumer of randomness owns its index so that
// the order in which consumers run can never change what they draw.
const (
	StreamScene       uint32 = 0
	StreamAtmosphere  uint32 = 1
	StreamEntry       uint32 = 2
	StreamInteraction uint32 = 3
	StreamColorTemp   uint32 = 4
	StreamTypography  uint32 = 5
	StreamTransition  uint32 = 6
	StreamGate        uint32 = 7 // draw 0 = mechanic, draw 1 = heat band
	StreamReceipt     uint32 = 8
	StreamRetryFirst  uint32 = 9
	StreamRetryLast   uint32 = 15

	// StreamExtraFirst is the lowest index a library beyond the required seven may use.
	StreamExtraFirst uint32 = 16
)

// RetryStreams is the number of streams in the retry block.
const RetryStreams = int(StreamRetryLast-StreamRetryFirst) + 1

const (
	gamma      = 0x9e3779b97f4a7c15
	streamSalt = 0x632be59bd9b4e019
)

// #endregion constants

// #region draw

// Draw returns the draw-th value of stream for seed. It is a pure function of
// its arguments: the result never depends on process, platform or call order.
//
// The stream key is hash(seed, stream); the generator seeded with that key is
// advanced draw+1 steps in O(1), since splitmix64 state advances by a constant.
func Draw(seed uint64, stream uint32, draw uint32) uint64 {
	key := streamKey(seed, stream)
	return mix(key + (uint64(draw)+1)*gamma)
}

// IsRetry reports whether stream belongs to the retry block.
func IsRetry(stream uint32) bool {
	return stream >= StreamRetryFirst && stream <= StreamRetryLast
}

// RetryStream returns the retry stream used by the given zero-based attempt.
// ok is false once the retry block is exhausted.
func RetryStream(attempt int) (stream uint32, ok bool) {
	if attempt < 0 || attempt >= RetryStreams {
		return 0, false
	}
	return StreamRetryFirst + uint32(attempt), true
}

func streamKey(seed uint64, stream uint32) uint64 {
	return mix(seed ^ mix(uint64(stream)+streamSalt))
}

// mix is the splitmix64 output finalizer, a bijection on uint64.
func mix(z uint64) uint64 {
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// #endregion draw

// #region generator

// Generator is a sequential splitmix64 generator. It is not safe for
// concurrent use; the compose path only uses Draw.
type Generator struct {
	state uint64
}

// New returns a generator with the given initial state.
func New(state uint64) *Generator {
	return &Generator{state: state}
}

// ForStream returns a generator whose n-th Next (zero-based) equals Draw(seed, stream, n).
func ForStream(seed uint64, stream uint32) *Generator {
	return &Generator{state: streamKey(seed, stream)}
}

// Next advances the generator and returns the next value.
func (g *Generator) Next() uint64 {
	g.state += gamma
	return mix(g.state)
}

// #endregion generator
