package dynamo

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"retailetl/internal/schema"
)

// BootstrapAPI is the client slice table bootstrap needs: table creation plus
// the describe call the existence waiter polls.
type BootstrapAPI interface {
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	dynamodb.DescribeTableAPIClient
}

// EnsureTable creates the sales table with its two secondary indexes and
// waits for it to become active. Creation is idempotent: an already-existing
// table is treated as success. Billing is on-demand, so no throughput knobs
// appear here.
func EnsureTable(ctx context.Context, client BootstrapAPI, table string) error {
	_, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:   aws.String(table),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(schema.AttrInvoiceID), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(schema.AttrCountry), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(schema.AttrCustomerID), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(schema.AttrTimestamp), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(schema.AttrInvoiceID), KeyType: types.KeyTypeHash},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			{
				IndexName: aws.String(schema.CountryIndex),
				KeySchema: []types.KeySchemaElement{
					{AttributeName: aws.String(schema.AttrCountry), KeyType: types.KeyTypeHash},
					{AttributeName: aws.String(schema.AttrTimestamp), KeyType: types.KeyTypeRange},
				},
				Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
			},
			{
				IndexName: aws.String(schema.CustomerIndex),
				KeySchema: []types.KeySchemaElement{
					{AttributeName: aws.String(schema.AttrCustomerID), KeyType: types.KeyTypeHash},
					{AttributeName: aws.String(schema.AttrTimestamp), KeyType: types.KeyTypeRange},
				},
				Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
			},
		},
	})
	if err != nil {
		var inUse *types.ResourceInUseException
		if !errors.As(err, &inUse) {
			return fmt.Errorf("create table %s: %w", table, err)
		}
		log.Printf("dynamo: table=%s already exists", table)
		return nil
	}

	waiter := dynamodb.NewTableExistsWaiter(client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)}, 2*time.Minute); err != nil {
		return fmt.Errorf("wait for table %s: %w", table, err)
	}
	log.Printf("dynamo: table=%s created indexes=[%s %s]", table, schema.CountryIndex, schema.CustomerIndex)
	return nil
}
