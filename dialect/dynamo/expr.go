package dynamo

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Update expressions issued by the dialect.
const (
	sequenceUpdateExpr = "SET #value = if_not_exists(#value, :initial) + :increment"
	versionUpdateExpr  = "SET #version = #version + :one"
	versionCondExpr    = "#version = :expected"
)

// equalityFilter builds a filter expression requiring every column to equal
// its value. It returns an empty expression when there are no columns.
func equalityFilter(names []string, values []any) (string, map[string]string, map[string]types.AttributeValue, error) {
	if len(names) == 0 {
		return "", nil, nil, nil
	}

	clauses := make([]string, 0, len(names))
	exprNames := make(map[string]string, len(names))
	exprValues := make(map[string]types.AttributeValue, len(names))
	for i, name := range names {
		nameKey := fmt.Sprintf("#k%d", i)
		valueKey := fmt.Sprintf(":v%d", i)
		av, err := attributevalue.Marshal(values[i])
		if err != nil {
			return "", nil, nil, fmt.Errorf("marshal key column %q: %w", name, err)
		}
		exprNames[nameKey] = name
		exprValues[valueKey] = av
		clauses = append(clauses, fmt.Sprintf("%s = %s", nameKey, valueKey))
	}
	return strings.Join(clauses, " AND "), exprNames, exprValues, nil
}
