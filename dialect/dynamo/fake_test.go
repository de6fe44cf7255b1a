package dynamo

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeClient is an in-memory stand-in for DynamoDB covering the expressions
// the dialect issues.
type fakeClient struct {
	mu     sync.Mutex
	tables map[string]map[string]map[string]types.AttributeValue

	// err, when set, is returned by every data-plane call.
	err error

	// failTransactAt, when positive, fails the TransactWriteItems call with
	// that 1-based index.
	failTransactAt int

	createTableCalls int
	transactCalls    []int
}

var _ Client = (*fakeClient)(nil)

func newFakeClient() *fakeClient {
	return &fakeClient{tables: make(map[string]map[string]map[string]types.AttributeValue)}
}

func notFound(table *string) error {
	return &types.ResourceNotFoundException{Message: aws.String("table not found: " + aws.ToString(table))}
}

func idOf(key map[string]types.AttributeValue) string {
	if s, ok := key[attrID].(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func cloneItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func (f *fakeClient) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	table, ok := f.tables[aws.ToString(in.TableName)]
	if !ok {
		return nil, notFound(in.TableName)
	}
	item, ok := table[idOf(in.Key)]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: cloneItem(item)}, nil
}

func (f *fakeClient) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	table, ok := f.tables[aws.ToString(in.TableName)]
	if !ok {
		return nil, notFound(in.TableName)
	}
	table[idOf(in.Item)] = cloneItem(in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeClient) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	table, ok := f.tables[aws.ToString(in.TableName)]
	if !ok {
		return nil, notFound(in.TableName)
	}
	delete(table, idOf(in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeClient) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	table, ok := f.tables[aws.ToString(in.TableName)]
	if !ok {
		return nil, notFound(in.TableName)
	}
	id := idOf(in.Key)
	item, exists := table[id]

	switch aws.ToString(in.UpdateExpression) {
	case sequenceUpdateExpr:
		attr := in.ExpressionAttributeNames["#value"]
		current := numberOf(in.ExpressionAttributeValues[":initial"])
		if exists {
			if n, ok := item[attr]; ok {
				current = numberOf(n)
			}
		} else {
			item = map[string]types.AttributeValue{attrID: &types.AttributeValueMemberS{Value: id}}
		}
		next := &types.AttributeValueMemberN{Value: strconv.FormatInt(current+numberOf(in.ExpressionAttributeValues[":increment"]), 10)}
		item[attr] = next
		table[id] = item
		return &dynamodb.UpdateItemOutput{Attributes: map[string]types.AttributeValue{attr: next}}, nil

	case versionUpdateExpr:
		attr := in.ExpressionAttributeNames["#version"]
		if !exists || !reflect.DeepEqual(item[attr], in.ExpressionAttributeValues[":expected"]) {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("version mismatch")}
		}
		item[attr] = &types.AttributeValueMemberN{Value: strconv.FormatInt(numberOf(item[attr])+1, 10)}
		return &dynamodb.UpdateItemOutput{}, nil

	default:
		return nil, fmt.Errorf("fake: unsupported update expression %q", aws.ToString(in.UpdateExpression))
	}
}

func (f *fakeClient) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	table, ok := f.tables[aws.ToString(in.TableName)]
	if !ok {
		return nil, notFound(in.TableName)
	}

	out := &dynamodb.ScanOutput{}
	for _, item := range table {
		if matchesFilter(item, in) {
			out.Items = append(out.Items, cloneItem(item))
		}
	}
	out.Count = int32(len(out.Items))
	return out, nil
}

func (f *fakeClient) TransactWriteItems(_ context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.failTransactAt > 0 && len(f.transactCalls)+1 == f.failTransactAt {
		return nil, &types.TransactionCanceledException{Message: aws.String("transaction cancelled")}
	}
	if len(in.TransactItems) > 100 {
		return nil, fmt.Errorf("fake: %d transact items exceeds limit", len(in.TransactItems))
	}
	seen := map[string]bool{}
	for _, ti := range in.TransactItems {
		var name *string
		var id string
		switch {
		case ti.Put != nil:
			name, id = ti.Put.TableName, idOf(ti.Put.Item)
		case ti.Delete != nil:
			name, id = ti.Delete.TableName, idOf(ti.Delete.Key)
		default:
			return nil, fmt.Errorf("fake: unsupported transact item")
		}
		if _, ok := f.tables[aws.ToString(name)]; !ok {
			return nil, notFound(name)
		}
		if seen[aws.ToString(name)+"/"+id] {
			return nil, fmt.Errorf("fake: multiple operations on one item")
		}
		seen[aws.ToString(name)+"/"+id] = true
	}
	for _, ti := range in.TransactItems {
		if ti.Put != nil {
			f.tables[aws.ToString(ti.Put.TableName)][idOf(ti.Put.Item)] = cloneItem(ti.Put.Item)
		} else {
			delete(f.tables[aws.ToString(ti.Delete.TableName)], idOf(ti.Delete.Key))
		}
	}
	f.transactCalls = append(f.transactCalls, len(in.TransactItems))
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func (f *fakeClient) CreateTable(_ context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := aws.ToString(in.TableName)
	if _, ok := f.tables[name]; ok {
		return nil, &types.ResourceInUseException{Message: aws.String("table exists: " + name)}
	}
	f.tables[name] = make(map[string]map[string]types.AttributeValue)
	f.createTableCalls++
	return &dynamodb.CreateTableOutput{}, nil
}

func (f *fakeClient) DescribeTable(_ context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tables[aws.ToString(in.TableName)]; !ok {
		return nil, notFound(in.TableName)
	}
	return &dynamodb.DescribeTableOutput{
		Table: &types.TableDescription{
			TableName:   in.TableName,
			TableStatus: types.TableStatusActive,
		},
	}, nil
}

func (f *fakeClient) DeleteTable(_ context.Context, in *dynamodb.DeleteTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := aws.ToString(in.TableName)
	if _, ok := f.tables[name]; !ok {
		return nil, notFound(in.TableName)
	}
	delete(f.tables, name)
	return &dynamodb.DeleteTableOutput{}, nil
}

// items returns the stored items of a table.
func (f *fakeClient) items(table string) map[string]map[string]types.AttributeValue {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]map[string]types.AttributeValue)
	for id, item := range f.tables[table] {
		out[id] = cloneItem(item)
	}
	return out
}

func (f *fakeClient) hasTable(table string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.tables[table]
	return ok
}

// matchesFilter evaluates conjunctions of "#name = :value".
func matchesFilter(item map[string]types.AttributeValue, in *dynamodb.ScanInput) bool {
	filter := aws.ToString(in.FilterExpression)
	if filter == "" {
		return true
	}
	for _, clause := range strings.Split(filter, " AND ") {
		parts := strings.SplitN(clause, " = ", 2)
		if len(parts) != 2 {
			return false
		}
		name := in.ExpressionAttributeNames[parts[0]]
		if !reflect.DeepEqual(item[name], in.ExpressionAttributeValues[parts[1]]) {
			return false
		}
	}
	return true
}

func numberOf(av types.AttributeValue) int64 {
	if n, ok := av.(*types.AttributeValueMemberN); ok {
		v, _ := strconv.ParseInt(n.Value, 10, 64)
		return v
	}
	return 0
}
