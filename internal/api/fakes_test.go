package api

import (
	"context"

	"github.com/JakeFAU/keyword-crawler/internal/crawler"
)

type nopFetcher struct{}

func (nopFetcher) Fetch(context.Context, string) (crawler.FetchResponse, error) {
	return crawler.FetchResponse{}, nil
}

type nopExtractor struct{}

func (nopExtractor) Extract([]byte) (crawler.Extraction, error) {
	return crawler.Extraction{}, nil
}

type nopClassifier struct{}

func (nopClassifier) Tag(context.Context, string) ([]crawler.Token, error) {
	return nil, nil
}

type nopEmitter struct{}

func (nopEmitter) Emit(context.Context, crawler.ScoredDocument) error {
	return nil
}
