package store

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/blackmichael/bluesky-autoposter/internal/config"
	"github.com/blackmichael/bluesky-autoposter/internal/domain"
)

// seenItem is one row of the seen table: namespace is the partition key and
// uri the sort key.
type seenItem struct {
	Namespace string `dynamodbav:"namespace"`
	URI       string `dynamodbav:"uri"`
	SeenAt    string `dynamodbav:"seen_at"`
}

// DynamoDBStore implements domain.SeenStore using AWS DynamoDB.
type DynamoDBStore struct {
	client    dynamodbiface.DynamoDBAPI
	tableName string
	namespace string
	now       func() time.Time
}

var _ domain.SeenStore = (*DynamoDBStore)(nil)

// OpenDynamoDB creates the AWS session, and the table when it does not exist
// yet (useful against DynamoDB Local).
func OpenDynamoDB(ctx context.Context, cfg config.StoreConfig, namespace string) (*DynamoDBStore, error) {
	awsConfig := &aws.Config{}
	if cfg.Region != "" {
		awsConfig.Region = aws.String(cfg.Region)
	}
	if cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.Endpoint)
	}

	sess, err := session.NewSessionWithOptions(session.Options{
		Config:            *awsConfig,
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, fmt.Errorf("create AWS session: %w", err)
	}

	s := newDynamoDBStore(dynamodb.New(sess), cfg.Table, namespace)
	if err := s.ensureTable(ctx); err != nil {
		return nil, fmt.Errorf("ensure table exists: %w", err)
	}
	return s, nil
}

func newDynamoDBStore(client dynamodbiface.DynamoDBAPI, table, namespace string) *DynamoDBStore {
	return &DynamoDBStore{
		client:    client,
		tableName: table,
		namespace: namespace,
		now:       time.Now,
	}
}

func (d *DynamoDBStore) ensureTable(ctx context.Context) error {
	_, err := d.client.DescribeTableWithContext(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(d.tableName),
	})
	if err == nil {
		return nil
	}

	_, err = d.client.CreateTableWithContext(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(d.tableName),
		KeySchema: []*dynamodb.KeySchemaElement{
			{AttributeName: aws.String("namespace"), KeyType: aws.String(dynamodb.KeyTypeHash)},
			{AttributeName: aws.String("uri"), KeyType: aws.String(dynamodb.KeyTypeRange)},
		},
		AttributeDefinitions: []*dynamodb.AttributeDefinition{
			{AttributeName: aws.String("namespace"), AttributeType: aws.String(dynamodb.ScalarAttributeTypeS)},
			{AttributeName: aws.String("uri"), AttributeType: aws.String(dynamodb.ScalarAttributeTypeS)},
		},
		BillingMode: aws.String(dynamodb.BillingModePayPerRequest),
	})
	if err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	return d.client.WaitUntilTableExistsWithContext(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(d.tableName),
	})
}

// Load queries the namespace partition, following LastEvaluatedKey.
func (d *DynamoDBStore) Load(ctx context.Context) (domain.SeenSet, error) {
	seen := domain.NewSeenSet()
	input := &dynamodb.QueryInput{
		TableName:              aws.String(d.tableName),
		KeyConditionExpression: aws.String("#ns = :ns"),
		ExpressionAttributeNames: map[string]*string{
			"#ns": aws.String("namespace"),
			"#u":  aws.String("uri"),
		},
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":ns": {S: aws.String(d.namespace)},
		},
		ProjectionExpression: aws.String("#u"),
	}

	for {
		out, err := d.client.QueryWithContext(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("query seen posts: %w", err)
		}

		var items []seenItem
		if err := dynamodbattribute.UnmarshalListOfMaps(out.Items, &items); err != nil {
			return nil, fmt.Errorf("unmarshal seen posts: %w", err)
		}
		for _, item := range items {
			seen.Add(item.URI)
		}

		if len(out.LastEvaluatedKey) == 0 {
			return seen, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

func (d *DynamoDBStore) Add(ctx context.Context, uri string) error {
	item, err := dynamodbattribute.MarshalMap(seenItem{
		Namespace: d.namespace,
		URI:       uri,
		SeenAt:    d.now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal seen post: %w", err)
	}

	_, err = d.client.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put seen post: %w", err)
	}
	return nil
}

// Close is a no-op; the DynamoDB client holds no connection.
func (d *DynamoDBStore) Close() error {
	return nil
}
