// Package pipeline orchestrates a synthesis run: read the document, apply
// substitution rules, chunk the text, synthesize one audio fragment per
// chunk through the provider, and assemble the ordered fragments into the
// final artifact with the audio tool.
package pipeline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/docsynth/docsynth/internal/config"
	"github.com/docsynth/docsynth/internal/ffmpeg"
	"github.com/docsynth/docsynth/internal/observability"
	"github.com/docsynth/docsynth/internal/text"
	"github.com/docsynth/docsynth/internal/tts"
)

// partsDirName is the intermediate fragment directory, created next to the
// input file.
const partsDirName = "tts-synth-parts"

// timestampLayout names the final artifact with second resolution, so
// repeated runs never collide.
const timestampLayout = "2006-01-02_15-04-05"

// ErrEmptyDocument is returned when the input contains no synthesizable text.
var ErrEmptyDocument = errors.New("document contains no synthesizable text")

// Pipeline owns one synthesis configuration: preprocessor, provider and
// audio tool are fixed at construction and reused across runs.
type Pipeline struct {
	cfg   *config.Config
	pre   *text.Preprocessor
	synth tts.Synthesizer
	tool  ffmpeg.Tool

	// now is injectable so artifact naming is testable.
	now func() time.Time
}

// New builds a Pipeline. Substitution rules compile here; an invalid
// pattern is a configuration error, not a runtime one.
func New(cfg *config.Config, synth tts.Synthesizer, tool ffmpeg.Tool) (*Pipeline, error) {
	pre, err := text.NewPreprocessor(cfg.Rules)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		cfg:   cfg,
		pre:   pre,
		synth: synth,
		tool:  tool,
		now:   time.Now,
	}, nil
}

// Run synthesizes inputPath into one audio file and returns its path.
// Any failure aborts the run; no partial artifact is reported as success.
func (p *Pipeline) Run(ctx context.Context, inputPath string) (final string, err error) {
	logger := observability.WithRunID(observability.NewRunID()).With().
		Str("input", inputPath).
		Str("provider", p.cfg.Provider).
		Logger()
	metrics := observability.NewRunMetrics(p.cfg.Provider)

	metrics.RecordRunStart()
	defer func() {
		metrics.RecordRunEnd(err == nil)
	}()

	chunks, err := p.buildChunks(inputPath)
	if err != nil {
		return "", err
	}
	if len(chunks) == 0 {
		return "", ErrEmptyDocument
	}
	metrics.RecordChunks(len(chunks))
	logger.Info().Int("chunks", len(chunks)).Msg("Document chunked")

	dir := filepath.Dir(inputPath)
	stem := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	partsDir := filepath.Join(dir, partsDirName)
	if err := os.MkdirAll(partsDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create fragment directory: %w", err)
	}

	fragments, err := p.synthesizeFragments(ctx, logger, metrics, chunks, partsDir, stem)
	if err != nil {
		return "", err
	}

	target := filepath.Join(dir, stem+"_"+p.now().Format(timestampLayout)+filepath.Ext(fragments[0]))
	if err := p.tool.Concatenate(ctx, fragments, target); err != nil {
		metrics.RecordAssemblyOp("concatenate", false)
		return "", err
	}
	metrics.RecordAssemblyOp("concatenate", true)

	final, err = p.tool.Convert(ctx, target, p.cfg.OutputFormat)
	if err != nil {
		metrics.RecordAssemblyOp("convert", false)
		return "", err
	}
	metrics.RecordAssemblyOp("convert", true)

	if !p.cfg.KeepFragments {
		p.cleanup(fragments, partsDir)
		if final != target {
			os.Remove(target)
		}
	}

	logger.Info().Str("output", final).Msg("Synthesis complete")
	return final, nil
}

// buildChunks reads the document line by line, preprocesses each line and
// accumulates the chunk sequence.
func (p *Pipeline) buildChunks(inputPath string) ([]text.Chunk, error) {
	f, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	chunker, err := text.NewChunker(p.cfg.ChunkLimit)
	if err != nil {
		return nil, err
	}

	// Lines can be longer than any scanner buffer, so read unbounded.
	reader := bufio.NewReader(f)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			chunker.AddLine(p.pre.Apply(strings.TrimRight(line, "\r\n")))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read input: %w", err)
		}
	}

	return chunker.Chunks(), nil
}

// synthesizeFragments produces one fragment per chunk, collected strictly
// by sequence index. A single worker means fully sequential synthesis.
func (p *Pipeline) synthesizeFragments(ctx context.Context, logger zerolog.Logger, metrics *observability.RunMetrics, chunks []text.Chunk, partsDir, stem string) ([]string, error) {
	paths := make([]string, len(chunks))

	workers := p.cfg.SynthesisWorkers
	if workers > len(chunks) {
		workers = len(chunks)
	}
	if workers <= 1 {
		for _, chunk := range chunks {
			path, err := p.synthesizeOne(ctx, logger, metrics, chunk, partsDir, stem)
			if err != nil {
				return nil, err
			}
			paths[chunk.Index] = path
		}
		return paths, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan text.Chunk)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for chunk := range jobs {
				path, err := p.synthesizeOne(ctx, logger, metrics, chunk, partsDir, stem)
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					cancel()
					return
				}
				paths[chunk.Index] = path
			}
		}()
	}

feed:
	for _, chunk := range chunks {
		select {
		case jobs <- chunk:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return paths, nil
}

// synthesizeOne runs a single provider call under the per-chunk timeout.
func (p *Pipeline) synthesizeOne(ctx context.Context, logger zerolog.Logger, metrics *observability.RunMetrics, chunk text.Chunk, partsDir, stem string) (string, error) {
	chunkCtx := ctx
	if p.cfg.ChunkTimeout > 0 {
		var cancel context.CancelFunc
		chunkCtx, cancel = context.WithTimeout(ctx, time.Duration(p.cfg.ChunkTimeout)*time.Second)
		defer cancel()
	}

	pathStem := filepath.Join(partsDir, fmt.Sprintf("%s%d", stem, chunk.Index))

	start := time.Now()
	path, err := p.synth.SynthesizeChunk(chunkCtx, chunk.Content, pathStem)
	metrics.RecordSynthesis(time.Since(start), err == nil)
	if err != nil {
		logger.Error().Err(err).Int("chunk", chunk.Index).Msg("Chunk synthesis failed")
		return "", err
	}

	if info, statErr := os.Stat(path); statErr == nil {
		metrics.RecordAudioBytes(info.Size())
	}
	logger.Debug().Int("chunk", chunk.Index).Str("fragment", path).Msg("Chunk synthesized")
	return path, nil
}

// cleanup removes fragment files and the fragment directory when empty.
func (p *Pipeline) cleanup(fragments []string, partsDir string) {
	for _, path := range fragments {
		os.Remove(path)
	}
	os.Remove(partsDir)
}
