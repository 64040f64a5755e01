package commands

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const archive = `tweet_id,in_reply_to_status_id,in_reply_to_user_id,timestamp,source,text,retweeted_status_id,retweeted_status_user_id,retweeted_status_timestamp,expanded_urls,rating_numerator,rating_denominator,name,doggo,floofer,pupper,puppo
892420643555336193,,,2017-08-01 16:23:56 +0000,"<a href=""http://twitter.com/download/iphone"" rel=""nofollow"">Twitter for iPhone</a>",This is Phineas. 13/10,,,,,13,10,Phineas,None,None,None,None
892177421306343426,,,2017-08-01 00:17:27 +0000,"<a href=""http://vine.co"" rel=""nofollow"">Vine - Make a Scene</a>",This is Tilly. 13/10,,,,,13,10,Tilly,None,None,pupper,None
`

const predictions = "tweet_id\tjpg_url\timg_num\tp1\tp1_conf\tp1_dog\tp2\tp2_conf\tp2_dog\tp3\tp3_conf\tp3_dog\n" +
	"892420643555336193\thttps://pbs.twimg.com/media/a.jpg\t1\tpug\t0.9\tTrue\tbagel\t0.05\tFalse\tbanana\t0.01\tFalse\n"

const metrics = `{"id": 892420643555336193, "favorite_count": 39467, "retweet_count": 8853}
{"id": 892177421306343426, "favorite_count": 33819, "retweet_count": 6514}
`

func newRoot() *cobra.Command {
	root := &cobra.Command{Use: "dogratings", SilenceUsage: true, SilenceErrors: true}
	root.PersistentFlags().String(ConfigFlag, "", "")
	root.AddCommand(NewRunCmd(), NewReportCmd(), NewServeCmd())
	return root
}

func writeConfig(t *testing.T, logLevel string) (cfgPath, dir string) {
	t.Helper()
	dir = t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
		return p
	}
	cfg := fmt.Sprintf(`sources:
  archivePath: %s
  predictionsPath: %s
  metricsPath: %s
output:
  csvPath: %s
  reportPath: %s
logLevel: %s
`,
		write("archive.csv", archive),
		write("predictions.tsv", predictions),
		write("metrics.jsonl", metrics),
		filepath.Join(dir, "master.csv"),
		filepath.Join(dir, "report.json"),
		logLevel,
	)
	return write("config.yaml", cfg), dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeContext(context.Background(), args...)
}

func executeContext(ctx context.Context, args ...string) (string, error) {
	color.NoColor = true
	root := newRoot()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func TestRunCmd(t *testing.T) {
	cfgPath, dir := writeConfig(t, "error")

	out, err := execute(t, "run", "--config", cfgPath)
	require.NoError(t, err)

	assert.Contains(t, out, "succeeded")
	assert.Contains(t, out, "Master records:   2")
	assert.Contains(t, out, "Master table: 2 records")
	assert.FileExists(t, filepath.Join(dir, "master.csv"))
	assert.FileExists(t, filepath.Join(dir, "report.json"))
}

func TestRunCmd_Quiet(t *testing.T) {
	cfgPath, _ := writeConfig(t, "error")

	out, err := execute(t, "run", "-q", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "succeeded")
	assert.NotContains(t, out, "Master table:")
}

func TestReportCmd(t *testing.T) {
	cfgPath, dir := writeConfig(t, "error")
	_, err := execute(t, "run", "-q", "--config", cfgPath)
	require.NoError(t, err)

	jsonPath := filepath.Join(dir, "again.json")
	out, err := execute(t, "report", "--config", cfgPath, "--json", jsonPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Master table: 2 records")
	assert.Contains(t, out, "Vine")
	assert.FileExists(t, jsonPath)
}

func TestReportCmd_MissingInput(t *testing.T) {
	cfgPath, dir := writeConfig(t, "error")
	_, err := execute(t, "report", "--config", cfgPath, "--input", filepath.Join(dir, "nope.csv"))
	assert.Error(t, err)
}

func TestSetupErrors(t *testing.T) {
	_, err := execute(t, "run", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "loading config")

	cfgPath, _ := writeConfig(t, "loud")
	_, err = execute(t, "run", "--config", cfgPath)
	assert.ErrorContains(t, err, `invalid log level "loud"`)
}

func TestServeCmd_ShutsDownOnCancel(t *testing.T) {
	cfgPath, dir := writeConfig(t, "error")
	f, err := os.OpenFile(cfgPath, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("server:\n  port: 0\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		_, err := executeContext(ctx, "serve", "--config", cfgPath)
		done <- err
	}()

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, "report.json"))
		return err == nil
	}, 5*time.Second, 10*time.Millisecond, "pipeline ran before serving")
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestServeCmd_PipelineFailure(t *testing.T) {
	cfgPath, dir := writeConfig(t, "error")
	require.NoError(t, os.Remove(filepath.Join(dir, "archive.csv")))

	_, err := execute(t, "serve", "--config", cfgPath)
	assert.Error(t, err)
}
