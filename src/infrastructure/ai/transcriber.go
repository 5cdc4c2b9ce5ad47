package ai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"video-linker/src/domain"
)

// WhisperTranscriber распознает речь через OpenAI-совместимый /audio/transcriptions
type WhisperTranscriber struct {
	client   *AIClient
	language string
}

// NewWhisperTranscriber создает новый экземпляр распознавания речи.
// Пустой language оставляет определение языка модели.
func NewWhisperTranscriber(client *AIClient, language string) *WhisperTranscriber {
	return &WhisperTranscriber{client: client, language: language}
}

var _ domain.Transcriber = (*WhisperTranscriber)(nil)

type verboseTranscription struct {
	Text     string `json:"text"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// Transcribe отправляет аудиофайл и возвращает сегменты распознанной речи
func (t *WhisperTranscriber) Transcribe(ctx context.Context, audioPath string) ([]domain.TimedFragment, error) {
	body, contentType, err := t.buildForm(audioPath)
	if err != nil {
		return nil, err
	}

	// Истекший срок контекста не повторяется
	var result verboseTranscription
	err = t.client.do(ctx, t.client.upload, t.client.config.Retry, "/audio/transcriptions", contentType,
		func() io.Reader { return bytes.NewReader(body) }, &result)
	if err != nil {
		return nil, err
	}

	return fragmentsFromTranscription(result), nil
}

func (t *WhisperTranscriber) buildForm(audioPath string) ([]byte, string, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return nil, "", fmt.Errorf("ошибка открытия аудиофайла: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, "", fmt.Errorf("ошибка формирования запроса: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("ошибка чтения аудиофайла: %w", err)
	}

	fields := map[string]string{
		"model":           t.client.config.TranscriptionModel,
		"response_format": "verbose_json",
	}
	if t.language != "" {
		fields["language"] = t.language
	}
	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, "", fmt.Errorf("ошибка формирования запроса: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("ошибка формирования запроса: %w", err)
	}

	return buf.Bytes(), w.FormDataContentType(), nil
}

// fragmentsFromTranscription переводит ответ в фрагменты. Сегменты без текста
// пропускаются; ответ без сегментов дает один фрагмент с началом 0.
func fragmentsFromTranscription(result verboseTranscription) []domain.TimedFragment {
	var fragments []domain.TimedFragment
	for _, seg := range result.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		fragments = append(fragments, domain.TimedFragment{Start: seg.Start, End: seg.End, Text: text})
	}

	if len(result.Segments) == 0 {
		if text := strings.TrimSpace(result.Text); text != "" {
			fragments = append(fragments, domain.TimedFragment{Start: 0, Text: text})
		}
	}
	return fragments
}
