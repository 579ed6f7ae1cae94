package notify

import "unicode/utf16"

// quizColors are the submission wall colors, indexed by QuizColor.
var quizColors = [16]string{
	"#FF5252", "#FF4081", "#E040FB", "#7C4DFF",
	"#536DFE", "#448AFF", "#40C4FF", "#18FFFF",
	"#64FFDA", "#69F0AE", "#B2FF59", "#EEFF41",
	"#FFFF00", "#FFD740", "#FFAB40", "#FF6E40",
}

// QuizColor maps a quiz id to a stable display color. The hash runs over
// UTF-16 code units with 32-bit shifts so every client picks the same color.
func QuizColor(quizID string) string {
	var hash int64
	for _, unit := range utf16.Encode([]rune(quizID)) {
		shifted := int64(int32(hash) << 5)
		hash = int64(unit) + (shifted - hash)
	}
	if hash < 0 {
		hash = -hash
	}
	return quizColors[hash%int64(len(quizColors))]
}
