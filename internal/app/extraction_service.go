package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/rs/zerolog/log"

	"review_ingest/internal/domain"
)

// ExtractionService runs the text pipeline over raw text or, via the OCR
// collaborator, over an uploaded image. Image extractions are cached by
// content hash so re-uploads of the same screenshot skip the provider call.
type ExtractionService struct {
	ocr      domain.OCRClient
	cache    domain.Cache
	ex       *Extractor
	cacheTTL time.Duration
}

func NewExtractionService(ocr domain.OCRClient, cache domain.Cache, ttl time.Duration) *ExtractionService {
	return &ExtractionService{ocr: ocr, cache: cache, ex: NewExtractor(), cacheTTL: ttl}
}

// FromText extracts fields from a pasted text blob. Never fails.
func (s *ExtractionService) FromText(text string) domain.Extraction {
	return s.ex.Extract(text)
}

// FromImage sends the image through the OCR provider and extracts fields from
// the recognized text. The second return reports a cache hit.
func (s *ExtractionService) FromImage(ctx context.Context, image []byte) (domain.Extraction, bool, error) {
	key := extractionCacheKey(image)

	var cached domain.Extraction
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &cached); ok {
			return cached, true, nil
		}
	}

	res, err := s.ocr.RecognizeText(ctx, image)
	if err != nil {
		return domain.Extraction{}, false, err
	}

	out := s.ex.Extract(res.Text)
	if res.Confidence > 0 {
		// provider-reported confidence beats the heuristic constant
		out.Confidence = res.Confidence
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds())); err != nil {
			log.Warn().Err(err).Msg("extraction cache set failed")
		}
	}
	return out, false, nil
}

func extractionCacheKey(image []byte) string {
	sum := sha256.Sum256(image)
	return "extract:" + hex.EncodeToString(sum[:])
}
