// Package guardrail wraps the Bedrock ApplyGuardrail API behind the
// gateway's Verdict model. Faults are never surfaced to callers: an
// unjudgeable prompt comes back as a blocked verdict (fail-closed).
package guardrail

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/povarna/prompt-gateway/internal/models"
	"github.com/rs/zerolog"
)

const (
	ReasonApproved    = "Content approved"
	ReasonUnavailable = "Validation service unavailable"
)

// BedrockAPI is the slice of the bedrockruntime client the guardrail client
// uses. This allows stubbing in tests without real AWS calls.
type BedrockAPI interface {
	ApplyGuardrail(ctx context.Context, params *bedrockruntime.ApplyGuardrailInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ApplyGuardrailOutput, error)
}

type Client struct {
	api              BedrockAPI
	guardrailID      string
	guardrailVersion string
	timeout          time.Duration
	logger           *zerolog.Logger
}

func NewClient(ctx context.Context, region string, guardrailID string, guardrailVersion string, logger *zerolog.Logger) (*Client, error) {
	if guardrailID == "" {
		return nil, fmt.Errorf("guardrail ID is required")
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}

	return &Client{
		api:              bedrockruntime.NewFromConfig(cfg),
		guardrailID:      guardrailID,
		guardrailVersion: guardrailVersion,
		timeout:          10 * time.Second,
		logger:           logger,
	}, nil
}

// NewClientWithAPI builds a client around an existing API implementation.
func NewClientWithAPI(api BedrockAPI, guardrailID string, guardrailVersion string, logger *zerolog.Logger) *Client {
	return &Client{
		api:              api,
		guardrailID:      guardrailID,
		guardrailVersion: guardrailVersion,
		timeout:          10 * time.Second,
		logger:           logger,
	}
}

// Evaluate submits text to the configured guardrail and normalizes the
// outcome. The text may be empty; emptiness rules belong to the caller.
func (c *Client) Evaluate(ctx context.Context, text string) models.Verdict {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.api.ApplyGuardrail(ctx, &bedrockruntime.ApplyGuardrailInput{
		GuardrailIdentifier: aws.String(c.guardrailID),
		GuardrailVersion:    aws.String(c.guardrailVersion),
		Source:              types.GuardrailContentSourceInput,
		Content: []types.GuardrailContentBlock{
			&types.GuardrailContentBlockMemberText{
				Value: types.GuardrailTextBlock{Text: aws.String(text)},
			},
		},
	})
	if err != nil {
		c.logger.Error().Err(err).Str("guardrail", c.guardrailID).Msg("guardrail call failed, failing closed")
		return models.Verdict{
			Allowed:   false,
			Reason:    ReasonUnavailable,
			ErrorNote: err.Error(),
		}
	}

	if out.Action != types.GuardrailActionGuardrailIntervened {
		return models.Verdict{Allowed: true, Reason: ReasonApproved}
	}

	assessments := flattenAssessments(out.Assessments)
	return models.Verdict{
		Allowed: false,
		Reason:  joinReasons(assessments),
		Details: assessments,
	}
}

// flattenAssessments walks every policy block of every assessment and emits
// one descriptor per triggered filter.
func flattenAssessments(assessments []types.GuardrailAssessment) []models.Assessment {
	var flat []models.Assessment

	for _, a := range assessments {
		if a.TopicPolicy != nil {
			for _, topic := range a.TopicPolicy.Topics {
				flat = append(flat, descriptor("topicPolicy", aws.ToString(topic.Name)))
			}
		}
		if a.ContentPolicy != nil {
			for _, filter := range a.ContentPolicy.Filters {
				flat = append(flat, descriptor("contentPolicy", string(filter.Type)))
			}
		}
		if a.WordPolicy != nil {
			for _, word := range a.WordPolicy.CustomWords {
				flat = append(flat, descriptor("wordPolicy", aws.ToString(word.Match)))
			}
			for _, word := range a.WordPolicy.ManagedWordLists {
				flat = append(flat, descriptor("wordPolicy", string(word.Type)))
			}
		}
		if a.SensitiveInformationPolicy != nil {
			for _, entity := range a.SensitiveInformationPolicy.PiiEntities {
				flat = append(flat, descriptor("sensitiveInformationPolicy", string(entity.Type)))
			}
			for _, regex := range a.SensitiveInformationPolicy.Regexes {
				flat = append(flat, descriptor("sensitiveInformationPolicy", aws.ToString(regex.Name)))
			}
		}
		if a.ContextualGroundingPolicy != nil {
			for _, filter := range a.ContextualGroundingPolicy.Filters {
				flat = append(flat, descriptor("contextualGroundingPolicy", string(filter.Type)))
			}
		}
	}

	if len(flat) == 0 {
		flat = append(flat, descriptor("guardrail", ""))
	}

	return flat
}

func descriptor(policy string, coverage string) models.Assessment {
	if coverage == "" {
		coverage = "unknown"
	}
	return models.Assessment{Type: policy, Coverage: coverage}
}

func joinReasons(assessments []models.Assessment) string {
	parts := make([]string, 0, len(assessments))
	for _, a := range assessments {
		parts = append(parts, fmt.Sprintf("%s: %s", a.Type, a.Coverage))
	}
	return strings.Join(parts, ", ")
}
