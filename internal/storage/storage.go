package storage

import (
	"errors"
	"net/http"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
)

var (
	// ErrConcurrencyConflict indicates that the underlying storage rejected a
	// write because a newer version of the board is already persisted.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	// ErrBoardNotFound is returned by Load when the board has no header row.
	ErrBoardNotFound = errors.New("board not found")
	// ErrBoardTooLarge is returned by Save when the change does not fit in a
	// single table transaction.
	ErrBoardTooLarge = errors.New("board too large for a single transaction")
)

var retryStatusCodes = []int{408, 429, 500, 502, 503, 504}

// Storage bundles the Azure clients used by the board binaries.
type Storage struct {
	Boards   *BoardStore
	Commands *Queue
	Events   *Queue
}

// New creates a Storage from connection parameters. An empty eventsQueue
// leaves Events nil.
func New(connStr, boardsTable, commandQueue, eventsQueue string) (*Storage, error) {
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   retryStatusCodes,
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &tablesClientOptions)
	if err != nil {
		return nil, err
	}
	st := &Storage{Boards: NewBoardStore(svc.NewClient(boardsTable))}

	if st.Commands, err = newQueue(connStr, commandQueue); err != nil {
		return nil, err
	}
	if eventsQueue != "" {
		if st.Events, err = newQueue(connStr, eventsQueue); err != nil {
			return nil, err
		}
	}
	return st, nil
}

func newQueue(connStr, name string) (*Queue, error) {
	queueClientOptions := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute * 5,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 60,
				StatusCodes:   retryStatusCodes,
			},
		},
	}
	qc, err := azqueue.NewQueueClientFromConnectionString(connStr, name, &queueClientOptions)
	if err != nil {
		return nil, err
	}
	return &Queue{client: qc}, nil
}

// classifySave maps a failed board transaction onto ErrConcurrencyConflict
// when another writer got there first.
func classifySave(err error) error {
	var respErr *azcore.ResponseError
	if !errors.As(err, &respErr) {
		return err
	}
	switch respErr.StatusCode {
	case http.StatusConflict, http.StatusPreconditionFailed, http.StatusNotFound:
		return errors.Join(ErrConcurrencyConflict, err)
	}
	switch respErr.ErrorCode {
	case string(aztables.UpdateConditionNotSatisfied), string(aztables.EntityAlreadyExists):
		return errors.Join(ErrConcurrencyConflict, err)
	}
	return err
}
