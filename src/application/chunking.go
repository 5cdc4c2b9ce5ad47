package application

import (
	"strings"
	"unicode/utf8"
)

// SplitIntoChunks разбивает текст на фрагменты не длиннее chunkSize байт,
// стараясь резать по знакам препинания и пробелам. Соседние фрагменты
// перекрываются примерно на overlap байт, чтобы не терять контекст на стыке.
func SplitIntoChunks(text string, chunkSize, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if chunkSize <= 0 {
		return []string{text}
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = 0
	}

	var chunks []string
	for len(text) > 0 {
		if len(text) <= chunkSize {
			if chunk := strings.TrimSpace(text); chunk != "" {
				chunks = append(chunks, chunk)
			}
			break
		}

		end := cutPoint(text, chunkSize)
		if chunk := strings.TrimSpace(text[:end]); chunk != "" {
			chunks = append(chunks, chunk)
		}

		text = text[overlapStart(text, end, overlap):]
	}

	return chunks
}

// cutPoint ищет наиболее подходящее место для разбиения в пределах limit байт.
// Пробел остается в следующем фрагменте, знак препинания в текущем.
// Результат всегда больше нуля и лежит на границе UTF-8 символа.
func cutPoint(text string, limit int) int {
	end := 0
	for i := limit; i > 0; i-- {
		c := text[i]
		if c == ' ' || c == '\n' || c == '\t' {
			end = i
			break
		}
		if i < limit && isBreakPoint(rune(c)) {
			end = i + 1
			break
		}
	}
	if end == 0 {
		end = limit
	}

	end = runeBoundary(text, end)
	if end == 0 {
		// Первый символ длиннее limit
		_, size := utf8.DecodeRuneInString(text)
		end = size
	}
	return end
}

// overlapStart возвращает начало следующего фрагмента: примерно за overlap байт
// до end, выровненное по границе слова. Результат лежит в (0, end].
func overlapStart(text string, end, overlap int) int {
	if overlap <= 0 || end-overlap <= 0 {
		return end
	}
	next := runeBoundary(text, end-overlap)
	if idx := strings.IndexByte(text[next:end], ' '); idx >= 0 {
		next += idx + 1
	}
	if next <= 0 || next >= end {
		return end
	}
	return next
}

// isBreakPoint проверяет, является ли символ подходящей точкой для разбиения
func isBreakPoint(r rune) bool {
	switch r {
	case '.', '!', '?', ';', ':', ',', ' ', '\n', '\t':
		return true
	default:
		return false
	}
}

// runeBoundary сдвигает индекс назад до начала UTF-8 символа
func runeBoundary(text string, i int) int {
	for i > 0 && i < len(text) && !utf8.RuneStart(text[i]) {
		i--
	}
	return i
}

// SplitSentences делит текст на предложения по точке, отбрасывая пустые
func SplitSentences(text string) []string {
	var sentences []string
	for _, part := range strings.Split(text, ".") {
		if s := strings.TrimSpace(part); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}
