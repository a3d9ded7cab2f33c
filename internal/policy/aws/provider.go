// Package aws holds the compiled-in posture policies for AWS resource
// variants: S3 buckets, EC2 security groups and instances, IAM users.
package aws

import "github.com/hugh/go-warden/internal/policy"

// Provider is the identifier used by the collector for AWS snapshots.
const Provider = "aws"

// Resource kinds this package registers policies for.
const (
	KindS3Bucket      = "S3Bucket"
	KindSecurityGroup = "SecurityGroup"
	KindEC2Instance   = "EC2Instance"
	KindIAMUser       = "IAMUser"
)

// Policies returns every AWS policy in registration order.
func Policies() []policy.Definition {
	var defs []policy.Definition
	defs = append(defs, s3Policies()...)
	defs = append(defs, ec2Policies()...)
	defs = append(defs, iamPolicies()...)
	return defs
}
