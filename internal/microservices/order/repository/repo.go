package repository

// Repository groups the order stores of one session.
type Repository struct {
	History OrderHistoryInterface
}
