package rustc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	v, err := ParseVersion("rustc 1.75.0 (82e1608df 2023-12-21)")
	require.NoError(t, err)
	assert.Equal(t, "1.75.0", v.String())

	v, err = ParseVersion("rustc 1.65.0")
	require.NoError(t, err)
	assert.Equal(t, uint64(65), v.Minor())

	_, err = ParseVersion("cargo 1.75.0")
	assert.Error(t, err)
}

func TestCompileSpec(t *testing.T) {
	tc := &Toolchain{Path: "/usr/bin/rustc"}
	spec := tc.CompileSpec("out/fib.rs", "/tmp/build")
	assert.Equal(t, "/usr/bin/rustc", spec.Cmd)
	assert.Contains(t, spec.Args, "--error-format=json")
	assert.Contains(t, spec.Args, "lib")
	assert.Equal(t, "out/fib.rs", spec.Args[len(spec.Args)-1])
}

const sampleStderr = `{"$message_type":"diagnostic","message":"mismatched types","code":{"code":"E0308","explanation":null},"level":"error","spans":[{"file_name":"fib.rs","line_start":4,"column_start":9,"is_primary":true}],"rendered":"error[E0308]: mismatched types"}
{"$message_type":"diagnostic","message":"unused variable: x","code":{"code":"unused_variables","explanation":null},"level":"warning","spans":[{"file_name":"fib.rs","line_start":2,"column_start":9,"is_primary":true}],"rendered":"warning"}
{"$message_type":"diagnostic","message":"aborting due to 1 previous error","code":null,"level":"error","spans":[],"rendered":"error: aborting"}
{"$message_type":"artifact","artifact":"fib.rmeta"}
`

func TestParseDiagnostics(t *testing.T) {
	diags := ParseDiagnostics([]byte(sampleStderr))
	require.Len(t, diags, 2)

	assert.Equal(t, "E0308", diags[0].Code)
	assert.Equal(t, "mismatched types", diags[0].Message)
	assert.Equal(t, "fib.rs", diags[0].File)
	assert.Equal(t, 4, diags[0].Line)
	assert.Equal(t, 9, diags[0].Column)

	// The summary line has no code and no span.
	assert.Empty(t, diags[1].Code)
	assert.Empty(t, diags[1].File)
}

func TestParseDiagnosticsGarbage(t *testing.T) {
	assert.Nil(t, ParseDiagnostics([]byte("not json\n")))
	assert.Nil(t, ParseDiagnostics(nil))
}
