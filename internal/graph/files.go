package graph

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/sync/errgroup"

	"repoassess/internal/language"
	"repoassess/internal/types"
)

// fileNodes hashes and line-counts files in parallel. Output order matches
// the (already sorted) input.
func (b *Builder) fileNodes(ctx context.Context, files []types.ScannedFile) ([]types.RepositoryFileNode, error) {
	nodes := make([]types.RepositoryFileNode, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			nodes[i] = fileNode(files[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nodes, nil
}

func fileNode(f types.ScannedFile) types.RepositoryFileNode {
	data := rawBytes(f)
	sum := sha256.Sum256(data)
	n := types.RepositoryFileNode{
		RelativePath: f.RelativePath,
		Extension:    language.Extension(f.RelativePath),
		SizeBytes:    f.SizeBytes,
		IsBinary:     !f.IsText,
		SHA256:       hex.EncodeToString(sum[:]),
	}
	if n.SizeBytes == 0 {
		n.SizeBytes = int64(len(data))
	}
	if f.IsText {
		lines := CountLines(data)
		n.LineCount = &lines
	}
	if lang, ok := language.ForPath(f.RelativePath); ok {
		n.Language = &lang
	}
	return n
}

// rawBytes prefers the bytes read from disk and falls back to decoded content
// for callers that construct ScannedFile values by hand.
func rawBytes(f types.ScannedFile) []byte {
	if f.Raw != nil {
		return f.Raw
	}
	if f.Content != nil {
		return []byte(*f.Content)
	}
	return []byte{}
}

// CountLines counts '\n' terminators plus a final unterminated line.
func CountLines(data []byte) int {
	if len(data) == 0 {
		return 0
	}
	n := bytes.Count(data, []byte{'\n'})
	if data[len(data)-1] != '\n' {
		n++
	}
	return n
}
