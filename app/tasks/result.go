package tasks

// NotAttempted marks a counter whose phase has not completed.
const NotAttempted = -1

// Result holds the counts of one run. Each counter is set once, when its
// phase completes.
type Result struct {
	PostsTransferred  int
	AssetsTransferred int
}

func NewResult() Result {
	return Result{
		PostsTransferred:  NotAttempted,
		AssetsTransferred: NotAttempted,
	}
}
