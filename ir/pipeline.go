package ir

import (
	"context"
	"fmt"
	"io"

	"github.com/prismpdf/pdfkit/filters"
	"github.com/prismpdf/pdfkit/ir/decoded"
	"github.com/prismpdf/pdfkit/ir/raw"
	"github.com/prismpdf/pdfkit/ir/semantic"
	"github.com/prismpdf/pdfkit/observability"
	"github.com/prismpdf/pdfkit/parser"
	"github.com/prismpdf/pdfkit/recovery"
)

type Pipeline struct {
	rawParser       raw.Parser
	decoder         decoded.Decoder
	semanticBuilder semantic.Builder
	recovery        recovery.Strategy
	logger          observability.Logger
}

// NewDefault constructs a pipeline with basic components (raw parser, filter decoder, minimal semantic builder). Streams are not decrypted.
func NewDefault() *Pipeline {
	fp := filters.NewPipeline(
		[]filters.Decoder{
			filters.NewFlateDecoder(),
			filters.NewLZWDecoder(),
			filters.NewASCII85Decoder(),
			filters.NewASCIIHexDecoder(),
		},
		filters.Limits{},
	)
	return &Pipeline{
		rawParser:       parser.NewDocumentParser(parser.Config{}),
		decoder:         decoded.NewDecoder(fp),
		semanticBuilder: semantic.NewBuilder(),
	}
}

// Parse orchestrates Raw -> Decoded -> Semantic pipeline.
func (p *Pipeline) Parse(ctx context.Context, r io.ReaderAt) (*semantic.Document, error) {
	rawDoc, err := p.rawParser.Parse(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("raw parsing failed: %w", err)
	}

	decodedDoc, err := p.decoder.Decode(ctx, rawDoc)
	if err != nil {
		return nil, fmt.Errorf("decoding failed: %w", err)
	}

	semDoc, err := p.semanticBuilder.Build(ctx, decodedDoc)
	if err != nil {
		return nil, fmt.Errorf("semantic building failed: %w", err)
	}

	return semDoc, nil
}
