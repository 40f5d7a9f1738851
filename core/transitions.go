package core

var questionTransitions = map[QuestionStatus]map[QuestionStatus]struct{}{
	QuestionOpen: {
		QuestionOpen:         {},
		QuestionSolved:       {},
		QuestionUnresolvable: {},
	},
}

var hypothesisTransitions = map[HypothesisStatus]map[HypothesisStatus]struct{}{
	HypothesisPending: {
		HypothesisVerified:            {},
		HypothesisRejected:            {},
		HypothesisUnverifiableFetch:   {},
		HypothesisUnverifiableAnalyze: {},
	},
}

var taskTransitions = map[TaskStatus]map[TaskStatus]struct{}{
	TaskPending: {
		TaskInProgress: {},
	},
	TaskError: {
		TaskInProgress: {},
	},
	TaskInProgress: {
		TaskCompleted: {},
		TaskFailed:    {},
		TaskError:     {},
		TaskPending:   {},
	},
}

// CheckQuestionTransition returns a *TransitionError unless from -> to is allowed.
func CheckQuestionTransition(from, to QuestionStatus) error {
	if _, ok := questionTransitions[from][to]; ok {
		return nil
	}
	return &TransitionError{Entity: "question", From: string(from), To: string(to)}
}

// CheckHypothesisTransition returns a *TransitionError unless from -> to is allowed.
func CheckHypothesisTransition(from, to HypothesisStatus) error {
	if _, ok := hypothesisTransitions[from][to]; ok {
		return nil
	}
	return &TransitionError{Entity: "hypothesis", From: string(from), To: string(to)}
}

// CheckTaskTransition returns a *TransitionError unless from -> to is allowed.
func CheckTaskTransition(from, to TaskStatus) error {
	if _, ok := taskTransitions[from][to]; ok {
		return nil
	}
	return &TransitionError{Entity: "task", From: string(from), To: string(to)}
}

// Terminal reports whether no transition leaves s.
func (s TaskStatus) Terminal() bool {
	return len(taskTransitions[s]) == 0
}

// Terminal reports whether no transition leaves s.
func (s HypothesisStatus) Terminal() bool {
	return len(hypothesisTransitions[s]) == 0
}

// Valid reports whether s is a known status.
func (s QuestionStatus) Valid() bool {
	switch s {
	case QuestionOpen, QuestionSolved, QuestionUnresolvable:
		return true
	}
	return false
}

// Valid reports whether s is a known status.
func (s HypothesisStatus) Valid() bool {
	switch s {
	case HypothesisPending, HypothesisVerified, HypothesisRejected,
		HypothesisUnverifiableFetch, HypothesisUnverifiableAnalyze:
		return true
	}
	return false
}

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted, TaskFailed, TaskError:
		return true
	}
	return false
}
