package domain

// CodeEvaluation is the judge's verdict on a submitted solution.
type CodeEvaluation struct {
	IsCorrect        bool     `json:"isCorrect"`
	CorrectnessScore int      `json:"correctnessScore"`
	TimeComplexity   string   `json:"timeComplexity,omitempty"`
	SpaceComplexity  string   `json:"spaceComplexity,omitempty"`
	Suggestions      []string `json:"suggestions,omitempty"`
	EdgeCasesHandled []string `json:"edgeCasesHandled,omitempty"`
	EdgeCasesMissed  []string `json:"edgeCasesMissed,omitempty"`
	Explanation      string   `json:"explanation,omitempty"`
}

// FailedEvaluation is recorded when the judge could not be reached.
func FailedEvaluation(reason string) *CodeEvaluation {
	return &CodeEvaluation{
		IsCorrect:        false,
		CorrectnessScore: 0,
		Explanation:      reason,
	}
}

// InterviewFeedback is the interviewer's end-of-session assessment.
type InterviewFeedback struct {
	Scores           Scores   `json:"scores"`
	PerformanceScore int      `json:"performanceScore"`
	Strengths        []string `json:"strengths"`
	Weaknesses       []string `json:"weaknesses"`
	KeyMistakes      []string `json:"keyMistakes"`
	Recommendations  []string `json:"recommendations"`
	DetailedAnalysis string   `json:"detailedAnalysis"`
}

// NeutralFeedback is used when no assessment could be generated.
func NeutralFeedback() *InterviewFeedback {
	return &InterviewFeedback{
		Scores: Scores{
			ProblemSolving:  50,
			CodeCorrectness: 50,
			Communication:   50,
			TimeEfficiency:  50,
			EdgeCases:       50,
		},
		PerformanceScore: 50,
		Strengths:        []string{"Completed the interview"},
		Weaknesses:       []string{"Unable to fully evaluate"},
		KeyMistakes:      []string{},
		Recommendations:  []string{"Practice more problems in this category"},
		DetailedAnalysis: "Interview completed.",
	}
}
