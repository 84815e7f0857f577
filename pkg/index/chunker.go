package index

import (
	"law-mate-be/internal/entity"
	"law-mate-be/pkg/lexical"
	"law-mate-be/pkg/utils"

	"github.com/google/uuid"
)

// Chunker splits documents into retrieval chunks under a fixed size/overlap
// policy. Splitting is deterministic: the same document and policy always
// yield the same chunk texts in the same order.
type Chunker struct {
	ChunkSize int
	Overlap   int
	tokenizer lexical.Tokenizer
}

func NewChunker(chunkSize, overlap int, tokenizer lexical.Tokenizer) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = 200
	}
	return &Chunker{ChunkSize: chunkSize, Overlap: overlap, tokenizer: tokenizer}
}

// Split chunks every document under the given generation. Ordinals within a
// document start at 0 and are gapless.
func (c *Chunker) Split(docs []*entity.Document, generation int64) []*entity.Chunk {
	var chunks []*entity.Chunk
	for _, doc := range docs {
		pieces := utils.SplitText(doc.Body, c.ChunkSize, c.Overlap)
		for ordinal, text := range pieces {
			chunks = append(chunks, &entity.Chunk{
				Id:         uuid.New(),
				DocumentId: doc.Id,
				Ordinal:    ordinal,
				Text:       text,
				TokenCount: len(c.tokenizer.Tokenize(text)),
				Generation: generation,
			})
		}
	}
	return chunks
}
