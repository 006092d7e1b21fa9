package coverage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	root := "/repo"

	assert.Equal(t, "/repo/src/lib.rs", NormalizePath("src/lib.rs", root))
	assert.Equal(t, "/repo/src/lib.rs", NormalizePath("./src/lib.rs", root))
	assert.Equal(t, "/repo/src/lib.rs", NormalizePath(`src\lib.rs`, root))
	assert.Equal(t, "/other/abs.rs", NormalizePath("/other/abs.rs", root))
	assert.Equal(t, "/repo/a/c.rs", NormalizePath("a/b/../c.rs", root))
}

func TestNormalizePath_Idempotent(t *testing.T) {
	root := "/repo"
	once := NormalizePath("src/deep/mod.rs", root)
	assert.Equal(t, once, NormalizePath(once, root))
}

func TestRelPath(t *testing.T) {
	assert.Equal(t, "src/lib.rs", RelPath("/repo/src/lib.rs", "/repo"))
	assert.Equal(t, ".", RelPath("/repo", "/repo"))
	assert.Equal(t, "/elsewhere/x.rs", RelPath("/elsewhere/x.rs", "/repo"))
}

func TestResolvePaths(t *testing.T) {
	report := Report{Files: []FileCoverage{
		{Path: "src/a.rs"},
		{Path: "/repo/src/b.rs"},
	}}

	out := ResolvePaths(report, "/repo")

	assert.Equal(t, "/repo/src/a.rs", out.Files[0].Path)
	assert.Equal(t, "/repo/src/b.rs", out.Files[1].Path)
}
