// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package docimport extracts plain text from Word documents through an
// external conversion service.
package docimport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"
)

const (
	// MimeTypeDocx is the only accepted upload type.
	MimeTypeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	defaultTimeout  = 30 * time.Second
	maxResponseSize = 10 * 1024 * 1024
)

var (
	// ErrImportBusy means a conversion is already in flight. Only one
	// document converts at a time.
	ErrImportBusy = errors.New("docimport: conversion already in progress")

	// ErrInvalidType means the upload is not a .docx file.
	ErrInvalidType = errors.New("docimport: only .docx files are supported")

	// ErrEmptyDocument means the service returned no text.
	ErrEmptyDocument = errors.New("docimport: document contains no text")
)

// conversionResponse is the service's reply body.
type conversionResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// Converter sends .docx files to a conversion endpoint and returns the
// extracted plain text. Safe for concurrent use; concurrent conversions
// beyond the first fail fast with ErrImportBusy.
type Converter struct {
	endpoint string
	client   *http.Client
	log      *slog.Logger
	slot     chan struct{}
}

// NewConverter creates a Converter for the given endpoint URL.
func NewConverter(endpoint string, log *slog.Logger) *Converter {
	c := &Converter{
		endpoint: endpoint,
		client:   &http.Client{Timeout: defaultTimeout},
		log:      log,
		slot:     make(chan struct{}, 1),
	}
	c.slot <- struct{}{}
	return c
}

// Convert uploads the document and returns its extracted text. The
// mimeType must be MimeTypeDocx. Returns ErrImportBusy without blocking
// if another conversion is running.
func (c *Converter) Convert(ctx context.Context, filename, mimeType string, r io.Reader) (string, error) {
	if mimeType != MimeTypeDocx {
		return "", ErrInvalidType
	}

	select {
	case <-c.slot:
	default:
		return "", ErrImportBusy
	}
	defer func() { c.slot <- struct{}{} }()

	start := time.Now()
	text, err := c.convert(ctx, filename, r)
	if err != nil {
		c.log.Error("document conversion failed",
			"filename", filename, "error", err)
		return "", err
	}

	c.log.Info("document converted",
		"filename", filename,
		"chars", len(text),
		"duration", time.Since(start))
	return text, nil
}

func (c *Converter) convert(ctx context.Context, filename string, r io.Reader) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("copying document: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("closing multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling conversion service: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	var cr conversionResponse
	if err := json.Unmarshal(data, &cr); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if cr.Error != "" {
			return "", fmt.Errorf("conversion service: %s", cr.Error)
		}
		return "", fmt.Errorf("conversion service returned status %d", resp.StatusCode)
	}

	if cr.Text == "" {
		return "", ErrEmptyDocument
	}
	return cr.Text, nil
}
