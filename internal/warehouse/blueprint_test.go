package warehouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwctl-io/dwctl/internal/config"
	"github.com/dwctl-io/dwctl/internal/topology"
)

func testSettings() *config.Settings {
	return &config.Settings{
		AccessKeyID:     "AKIAEXAMPLE",
		SecretAccessKey: "secret",
		Region:          "eu-central-1",
		DBUsername:      "admin",
		DBPassword:      "hunter2",
		NameSuffix:      "4711",
	}
}

func TestBuild_StepOrder(t *testing.T) {
	bp := Build(nil, testSettings(), DefaultPaths())

	type addr struct {
		kind topology.Kind
		name string
	}
	got := make([]addr, 0, len(bp.Steps))
	for _, s := range bp.Steps {
		got = append(got, addr{s.Kind(), s.Name()})
	}

	// Creation dependency order: everything a resource references must come
	// before it; deletion walks this strictly reversed.
	want := []addr{
		{topology.KindNetwork, NetworkName},
		{topology.KindSecurityGroup, SecurityGroupName},
		{topology.KindIAMPolicy, GlueJobName + "-policy"},
		{topology.KindIAMPolicy, GlueLambdaName + "-policy"},
		{topology.KindIAMPolicy, RDSLambdaName + "-policy"},
		{topology.KindIAMRole, GlueJobName + "-role"},
		{topology.KindIAMRole, GlueLambdaName + "-role"},
		{topology.KindIAMRole, RDSLambdaName + "-role"},
		{topology.KindBucket, "script-bucket-4711"},
		{topology.KindBucket, "raw-data-bucket-4711"},
		{topology.KindBucket, "processed-data-bucket-4711"},
		{topology.KindGlueJob, GlueJobName},
		{topology.KindSecret, SecretName},
		{topology.KindLambdaFunction, GlueLambdaName},
		{topology.KindLambdaFunction, RDSLambdaName},
		{topology.KindDBInstance, RDSName},
	}
	assert.Equal(t, want, got)
}

func TestBuild_UploadTargetIsRawBucket(t *testing.T) {
	bp := Build(nil, testSettings(), DefaultPaths())

	require.NotNil(t, bp.RawBucket)
	assert.Equal(t, "raw-data-bucket-4711", bp.RawBucket.Name())
}

func TestBuild_DefaultSuffixApplied(t *testing.T) {
	settings := testSettings()
	settings.NameSuffix = ""

	bp := Build(nil, settings, DefaultPaths())
	assert.Equal(t, "raw-data-bucket-1405480", bp.RawBucket.Name())
}

func TestBuild_ReadyHookRequiresDBEndpoint(t *testing.T) {
	bp := Build(nil, testSettings(), DefaultPaths())

	topo := topology.New()
	topo.Append(&topology.Descriptor{Kind: topology.KindDBInstance, Name: RDSName})
	err := bp.ReadyHook(context.Background(), topo)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoint unknown")
}
