package engine

// Result is the graded outcome of one quiz attempt.
type Result struct {
	Score            float64 `json:"score"` // 0-100, full precision
	Passed           bool    `json:"passed"`
	CorrectCount     int     `json:"correctCount"`
	TotalQuestions   int     `json:"totalQuestions"`
	TimeTakenSeconds int     `json:"timeTakenSeconds"`
	AutoSubmitted    bool    `json:"autoSubmitted"`
}

// Score computes the percentage of correct answers over the full
// question set. Unanswered questions count as incorrect. The caller
// guarantees the question set is non-empty (see QuizDefinition.Validate).
func Score(questions []QuizQuestion, answers map[int]int) float64 {
	correct := 0
	for i, q := range questions {
		if chosen, ok := answers[i]; ok && chosen == q.CorrectOption {
			correct++
		}
	}
	return float64(correct) / float64(len(questions)) * 100
}

// Grade scores an answer set against a quiz definition. The pass verdict
// uses an inclusive threshold: score == passing score passes.
func Grade(def QuizDefinition, answers map[int]int) Result {
	correct := 0
	for i, q := range def.Questions {
		if chosen, ok := answers[i]; ok && chosen == q.CorrectOption {
			correct++
		}
	}
	score := float64(correct) / float64(len(def.Questions)) * 100
	return Result{
		Score:          score,
		Passed:         score >= def.PassingScore,
		CorrectCount:   correct,
		TotalQuestions: len(def.Questions),
	}
}
