package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"

	"github.com/BasmalaAyman4/storefront-gateway/internal/models"
)

const sessionPKPrefix = "SESSION!"

// dynamoAPI is the subset of the DynamoDB client the repository calls.
type dynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoSessionRepository stores sessions in DynamoDB. The bearer token is
// sealed before the item is written; the TTL attribute lets the table
// expire abandoned sessions on its own.
type DynamoSessionRepository struct {
	client    dynamoAPI
	tableName string
	sealer    *TokenSealer
	retention time.Duration
	logger    *logrus.Logger
}

var _ SessionRepository = (*DynamoSessionRepository)(nil)

func NewDynamoSessionRepository(client *dynamodb.Client, tableName string, sealer *TokenSealer, retention time.Duration, logger *logrus.Logger) *DynamoSessionRepository {
	return &DynamoSessionRepository{
		client:    client,
		tableName: tableName,
		sealer:    sealer,
		retention: retention,
		logger:    logger,
	}
}

func (r *DynamoSessionRepository) Put(ctx context.Context, session *models.Session) error {
	sealed, err := r.sealer.Seal(session.AccessToken)
	if err != nil {
		return err
	}

	item, err := attributevalue.MarshalMap(session)
	if err != nil {
		r.logger.WithError(err).Error("Failed to marshal session for DynamoDB")
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	item["PK"] = &types.AttributeValueMemberS{Value: session.GetPK()}
	item["SK"] = &types.AttributeValueMemberS{Value: session.GetSK()}
	item["sealed_token"] = &types.AttributeValueMemberB{Value: sealed}
	item["TTL"] = &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", session.LastSeenAt.Add(r.retention).Unix())}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		r.logger.WithError(err).Error("Failed to store session in DynamoDB")
		return fmt.Errorf("failed to store session: %w", err)
	}

	return nil
}

func (r *DynamoSessionRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	probe := models.Session{ID: id}

	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: probe.GetPK()},
			"SK": &types.AttributeValueMemberS{Value: probe.GetSK()},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if result.Item == nil {
		return nil, ErrSessionNotFound
	}

	var session models.Session
	if err := attributevalue.UnmarshalMap(result.Item, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	if sealedAttr, ok := result.Item["sealed_token"].(*types.AttributeValueMemberB); ok {
		token, err := r.sealer.Open(sealedAttr.Value)
		if err != nil {
			r.logger.WithError(err).Error("Failed to unseal session token")
			return nil, fmt.Errorf("failed to unseal session token: %w", err)
		}
		session.AccessToken = token
	}

	return &session, nil
}

func (r *DynamoSessionRepository) Delete(ctx context.Context, id string) error {
	probe := models.Session{ID: id}

	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: probe.GetPK()},
			"SK": &types.AttributeValueMemberS{Value: probe.GetSK()},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

// ListIdleSince scans for sessions whose stored TTL implies a last
// activity before the cutoff. TTL is written as last_seen + retention, so
// the two horizons are equivalent.
func (r *DynamoSessionRepository) ListIdleSince(ctx context.Context, cutoff time.Time) ([]models.Session, error) {
	horizon := cutoff.Add(r.retention).Unix()

	result, err := r.client.Scan(ctx, &dynamodb.ScanInput{
		TableName:        aws.String(r.tableName),
		FilterExpression: aws.String("begins_with(PK, :prefix) AND #ttl <= :horizon"),
		ExpressionAttributeNames: map[string]string{
			"#ttl": "TTL",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":prefix":  &types.AttributeValueMemberS{Value: sessionPKPrefix},
			":horizon": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", horizon)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan idle sessions: %w", err)
	}

	sessions := make([]models.Session, 0, len(result.Items))
	for _, item := range result.Items {
		var session models.Session
		if err := attributevalue.UnmarshalMap(item, &session); err != nil {
			return nil, fmt.Errorf("failed to unmarshal idle session: %w", err)
		}
		if sealedAttr, ok := item["sealed_token"].(*types.AttributeValueMemberB); ok {
			token, err := r.sealer.Open(sealedAttr.Value)
			if err != nil {
				r.logger.WithError(err).WithField("session_id", session.ID).Error("Failed to unseal idle session token")
				continue
			}
			session.AccessToken = token
		}
		sessions = append(sessions, session)
	}

	return sessions, nil
}
