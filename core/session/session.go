package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"training-launcher/core/logger"
	"training-launcher/storage"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// ErrNoExecutionRole is returned when no role was configured and none can be
// derived from the caller identity
var ErrNoExecutionRole = errors.New("no execution role")

// STSAPI is the subset of the STS client used to resolve the caller
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// Session is the context every later step runs in
type Session struct {
	Account   string
	CallerARN string
	RoleARN   string
	Bucket    string
	Region    string
}

// Options override what would otherwise be derived from the caller
type Options struct {
	Region  string
	RoleARN string
	Bucket  string
}

// Initializer resolves a Session from ambient credentials
type Initializer struct {
	sts   STSAPI
	store storage.ObjectStore
}

func NewInitializer(stsClient STSAPI, store storage.ObjectStore) *Initializer {
	return &Initializer{sts: stsClient, store: store}
}

// Init resolves the caller, the execution role and the default bucket,
// creating the bucket when it does not exist. Credential and permission
// errors are returned wrapped, not translated.
func (i *Initializer) Init(ctx context.Context, opts Options) (*Session, error) {
	if opts.Region == "" {
		return nil, fmt.Errorf("no region configured")
	}

	identity, err := i.sts.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve caller identity: %w", err)
	}

	sess := &Session{
		Account:   aws.ToString(identity.Account),
		CallerARN: aws.ToString(identity.Arn),
		Region:    opts.Region,
	}

	sess.RoleARN = opts.RoleARN
	if sess.RoleARN == "" {
		sess.RoleARN, err = RoleFromCallerARN(sess.CallerARN)
		if err != nil {
			return nil, err
		}
	}

	sess.Bucket = opts.Bucket
	if sess.Bucket == "" {
		sess.Bucket = DefaultBucket(sess.Region, sess.Account)
	}
	if err := i.ensureBucket(ctx, sess.Bucket); err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"account": sess.Account,
		"role":    sess.RoleARN,
		"bucket":  sess.Bucket,
		"region":  sess.Region,
	}).Info("Session initialized")

	return sess, nil
}

func (i *Initializer) ensureBucket(ctx context.Context, bucket string) error {
	exists, err := i.store.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return i.store.CreateBucket(ctx, bucket)
}

// DefaultBucket is the bucket name SageMaker tooling uses by convention
func DefaultBucket(region, account string) string {
	return fmt.Sprintf("sagemaker-%s-%s", region, account)
}

// RoleFromCallerARN maps an assumed-role session ARN back to its IAM role.
// Plain role ARNs are returned as is.
//
//	arn:aws:sts::111122223333:assumed-role/SageMakerRole/session
//	-> arn:aws:iam::111122223333:role/SageMakerRole
func RoleFromCallerARN(callerARN string) (string, error) {
	parts := strings.SplitN(callerARN, ":", 6)
	if len(parts) != 6 || parts[0] != "arn" {
		return "", fmt.Errorf("%w: cannot parse caller %q", ErrNoExecutionRole, callerARN)
	}
	partition, service, account, resource := parts[1], parts[2], parts[4], parts[5]

	switch {
	case service == "iam" && strings.HasPrefix(resource, "role/"):
		return callerARN, nil
	case service == "sts" && strings.HasPrefix(resource, "assumed-role/"):
		segments := strings.Split(resource, "/")
		if len(segments) < 2 || segments[1] == "" {
			break
		}
		return fmt.Sprintf("arn:%s:iam::%s:role/%s", partition, account, segments[1]), nil
	}

	return "", fmt.Errorf("%w: caller %q is not a role, set SAGEMAKER_ROLE_ARN", ErrNoExecutionRole, callerARN)
}
