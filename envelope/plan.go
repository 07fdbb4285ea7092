package envelope

import "fmt"

// DefaultChunkSize is the default envelope chunk size (1 MiB of envelope
// text). One chunk of base64 resolves to at most ~768 KiB of aligned binary
// read, which bounds per-chunk memory regardless of artifact size.
const DefaultChunkSize = 1 << 20

// ChunkPlan partitions the envelope into fixed-size chunks. It is a pure
// function of (TotalLength, ChunkSize) — never of network state — so any
// chunk is regenerable deterministically after a restart.
type ChunkPlan struct {
	// ChunkSize is the size of every chunk except possibly the last.
	ChunkSize int64
	// TotalLength is the envelope length being partitioned.
	TotalLength int64
	// TotalChunks is ceil(TotalLength/ChunkSize).
	TotalChunks int64
}

// NewChunkPlan builds a plan. ChunkSize must be positive.
func NewChunkPlan(totalLength, chunkSize int64) (ChunkPlan, error) {
	if chunkSize <= 0 {
		return ChunkPlan{}, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if totalLength < 0 {
		return ChunkPlan{}, fmt.Errorf("total length must be non-negative, got %d", totalLength)
	}
	return ChunkPlan{
		ChunkSize:   chunkSize,
		TotalLength: totalLength,
		TotalChunks: (totalLength + chunkSize - 1) / chunkSize,
	}, nil
}

// Range returns the envelope byte range [start, end) covered by chunk index:
// [index*ChunkSize, min((index+1)*ChunkSize, TotalLength)).
func (p ChunkPlan) Range(index int64) (start, end int64, err error) {
	if index < 0 || index >= p.TotalChunks {
		return 0, 0, fmt.Errorf("%w: chunk index %d of %d", ErrOutOfRange, index, p.TotalChunks)
	}
	start = index * p.ChunkSize
	end = start + p.ChunkSize
	if end > p.TotalLength {
		end = p.TotalLength
	}
	return start, end, nil
}

// ChunkGenerator produces deterministic chunks of an envelope. Chunk(i) is
// byte-for-byte reproducible across retries and restarts as long as the
// artifact files are unchanged.
type ChunkGenerator struct {
	env  *Envelope
	plan ChunkPlan
}

// NewChunkGenerator creates a generator partitioning env by chunkSize.
func NewChunkGenerator(env *Envelope, chunkSize int64) (*ChunkGenerator, error) {
	plan, err := NewChunkPlan(env.TotalLength(), chunkSize)
	if err != nil {
		return nil, err
	}
	return &ChunkGenerator{env: env, plan: plan}, nil
}

// Plan returns the chunk plan.
func (g *ChunkGenerator) Plan() ChunkPlan {
	return g.plan
}

// Chunk resolves chunk index against the envelope grammar and returns its
// text.
func (g *ChunkGenerator) Chunk(index int64) (string, error) {
	start, end, err := g.plan.Range(index)
	if err != nil {
		return "", err
	}
	return g.env.Resolve(start, end)
}
