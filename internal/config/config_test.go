package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "Name", c.NameColumn)
	assert.Equal(t, "Unique ID", c.IDColumn)
	assert.Equal(t, "SUPW", c.GroupColumn)
	assert.Equal(t, 10, c.TopK)
	assert.Equal(t, 0.1, c.TrendThreshold)
	assert.Equal(t, ":5000", c.ServerAddr)
	assert.Equal(t, 10*time.Minute, c.CacheTTL())
	assert.Contains(t, c.ProjectsDir, filepath.Join(".scorelens", "projects"))

	opt := c.LoadOptions()
	assert.Equal(t, "Seat Number", opt.SubjectsAfter)
	assert.Empty(t, opt.Subjects)

	views, err := c.ViewOptions()
	require.NoError(t, err)
	assert.Equal(t, 60.0, views.Thresholds.Pass)
	assert.Nil(t, views.Bands)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	c, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, c.Set("top_k", "5"))
	require.NoError(t, c.Set("subjects", "Math, Science,,"))
	require.NoError(t, c.Set("bands", "50-100,0-49"))
	require.NoError(t, c.Set("log_format", "JSON"))
	require.NoError(t, Save(c, path))

	back, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, back.TopK)
	assert.Equal(t, []string{"Math", "Science"}, back.Subjects)
	assert.Equal(t, "json", back.LogFormat)
	views, err := back.ViewOptions()
	require.NoError(t, err)
	require.Len(t, views.Bands, 2)
	assert.Equal(t, 50.0, views.Bands[0].Min)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SCORELENS_TOP_K", "3")
	t.Setenv("SCORELENS_GROUP_COLUMN", "House")
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3, c.TopK)
	assert.Equal(t, "House", c.GroupColumn)
}

func TestSetRejectsBadValues(t *testing.T) {
	c := &Global{}
	assert.Error(t, c.Set("top_k", "-1"))
	assert.Error(t, c.Set("pass_mark", "abc"))
	assert.Error(t, c.Set("bands", "100-0"))
	assert.Error(t, c.Set("log_level", "loud"))
	assert.Error(t, c.Set("nope", "1"))
	assert.NoError(t, c.Set("redis_addr", "localhost:6379"))
	assert.Equal(t, "localhost:6379", c.RedisAddr)
}
