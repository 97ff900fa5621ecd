package core

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// Operation represents one of the five generated REST operations of a collection.
type Operation string

// all generated route operations
const (
	OperationGetAll Operation = "GET_ALL"
	OperationGetOne Operation = "GET_ONE"
	OperationPost   Operation = "POST"
	OperationPut    Operation = "PUT"
	OperationDelete Operation = "DELETE"
)

// Operations lists all generated route operations in documentation order.
var Operations = []Operation{
	OperationGetAll,
	OperationGetOne,
	OperationPost,
	OperationPut,
	OperationDelete,
}

// UnmarshalJSON is a custom JSON unmarshaller
func (o *Operation) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*o = Operation(s)
	switch *o {
	case OperationGetAll, OperationGetOne, OperationPost, OperationPut, OperationDelete:
		return nil
	default:
		return fmt.Errorf("%s is not a valid Operation", s)
	}
}

// Method returns the HTTP method a route operation responds to.
func (o Operation) Method() string {
	switch o {
	case OperationPost:
		return "POST"
	case OperationPut:
		return "PUT"
	case OperationDelete:
		return "DELETE"
	default:
		return "GET"
	}
}

// Slugify derives the URL path segment for a collection name: lower case,
// runs of non-alphanumeric characters collapsed to a single '-', leading
// and trailing '-' stripped.
//
// This is the algorithm used to create the generated REST routes.
func Slugify(name string) string {
	var b strings.Builder
	lastDash := true // suppress a leading dash
	for _, r := range strings.ToLower(name) {
		if ('a' <= r && r <= 'z') || ('0' <= r && r <= '9') {
			b.WriteRune(r)
			lastDash = false
		} else if !lastDash {
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
