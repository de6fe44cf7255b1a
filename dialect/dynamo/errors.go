package dynamo

import (
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ErrReservedColumn is returned when a tuple or row uses a column name the
// dialect stores its own bookkeeping under.
var ErrReservedColumn = errors.New("grid/dynamo: column name is reserved")

// ErrPartialWrite is returned when an association write needed several
// transactions and one after the first failed. The earlier transactions
// remain committed.
var ErrPartialWrite = errors.New("grid/dynamo: association written partially")

// isNotFound reports whether err means the table does not exist.
func isNotFound(err error) bool {
	var notFound *types.ResourceNotFoundException
	return errors.As(err, &notFound)
}

// isConditionFailed reports whether err is a failed condition expression.
func isConditionFailed(err error) bool {
	var condErr *types.ConditionalCheckFailedException
	return errors.As(err, &condErr)
}
