package domain

import (
	"fmt"
	"time"
)

// Source обозначает, откуда получен текст транскрипции
type Source string

const (
	// SourceYouTube субтитры YouTube (ручные или автоматические)
	SourceYouTube Source = "youtube"
	// SourceWhisper распознавание речи из скачанного аудио
	SourceWhisper Source = "whisper"
)

// TimedFragment минимальная единица текста с временной меткой (секунды)
type TimedFragment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end,omitempty"` // 0, если конец неизвестен
	Text  string  `json:"text"`
}

// Segment текст одного временного окна фиксированной ширины
type Segment struct {
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Text        string  `json:"text"`
	DisplayTime string  `json:"display_time"`
}

// TimeRange возвращает канонический ключ окна "HH:MM:SS - HH:MM:SS"
func (s Segment) TimeRange() string {
	return fmt.Sprintf("%s - %s", FormatClock(s.Start), FormatClock(s.End))
}

// IndexedSegment сегмент вместе с его векторным представлением
type IndexedSegment struct {
	Segment
	Vector []float32 `json:"-"`
}

// ScoredSegment результат запроса к хранилищу с "сырой" оценкой индекса
type ScoredSegment struct {
	Segment
	Score float64 `json:"score"`
}

// MatchResult найденный для запроса сегмент с нормализованной оценкой
type MatchResult struct {
	QueryText       string  `json:"summary_text"`
	SourceSegment   string  `json:"source_segment"`
	Timestamp       float64 `json:"timestamp"`
	DisplayTime     string  `json:"display_time"`
	SimilarityScore float64 `json:"similarity_score"`
}

// VideoTranscript результат обработки видео конвейером
type VideoTranscript struct {
	VideoID  string    `json:"video_id"`
	URL      string    `json:"url"`
	Summary  string    `json:"summary"`
	Segments []Segment `json:"segments"`
	Source   Source    `json:"source"`
}

// TranscriptionResult результат этапа получения текста.
// Реализуется только типами Subtitles и SpeechToText.
type TranscriptionResult interface {
	Fragments() []TimedFragment
	Source() Source
	isTranscriptionResult()
}

// Subtitles фрагменты, полученные из субтитров YouTube
type Subtitles struct {
	Cues []TimedFragment
}

func (s Subtitles) Fragments() []TimedFragment { return s.Cues }
func (s Subtitles) Source() Source             { return SourceYouTube }
func (Subtitles) isTranscriptionResult()       {}

// SpeechToText фрагменты, полученные распознаванием речи
type SpeechToText struct {
	Segments []TimedFragment
}

func (s SpeechToText) Fragments() []TimedFragment { return s.Segments }
func (s SpeechToText) Source() Source             { return SourceWhisper }
func (SpeechToText) isTranscriptionResult()       {}

// ProgressEvent событие о ходе обработки запроса
type ProgressEvent struct {
	RequestID string    `json:"request_id"`
	Stage     string    `json:"stage"`
	Message   string    `json:"message,omitempty"`
	Time      time.Time `json:"time"`
}

// Этапы конвейера, о которых сообщается через ProgressReporter
const (
	StageValidated  = "validated"
	StageCacheHit   = "cache_hit"
	StageSubtitles  = "subtitles"
	StageDownload   = "download"
	StageTranscribe = "transcribe"
	StageGrouped    = "grouped"
	StageSummarize  = "summarize"
	StageIndex      = "index"
	StageDone       = "done"
	StageFailed     = "failed"
)

// StoreStats состояние векторного индекса
type StoreStats struct {
	Initialized bool      `json:"initialized"`
	Generation  int64     `json:"generation"`
	Segments    int       `json:"segments"`
	Dimensions  int       `json:"dimensions"`
	UpdatedAt   time.Time `json:"updated_at"`
}
