package codegen

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depyler-lang/depyler/internal/astbridge"
)

func emit(t *testing.T, src string) string {
	t.Helper()

	return emitWith(t, src, Options{})
}

func emitWith(t *testing.T, src string, opts Options) string {
	t.Helper()

	mod, err := astbridge.ConvertSource(context.Background(), "test.py", []byte(src))
	require.NoError(t, err)

	out, err := GenModule(mod, opts)
	require.NoError(t, err)

	return out
}

func TestPrintInferredString(t *testing.T) {
	out := emit(t, "def f(x): print(x)\n")

	assert.Contains(t, out, "pub fn f(x: String)")
	assert.Contains(t, out, `println!("{}", x);`)
}

func TestTupleUnpackSignature(t *testing.T) {
	out := emit(t, `
def g(p):
    a, b, c = p
    return a
`)

	assert.Contains(t, out, "pub fn g(p: (String, String, String)) -> String")
	assert.Contains(t, out, "let (a, b, c) = p;")
}

func TestParseFallback(t *testing.T) {
	out := emit(t, `
def safe(s: str) -> int:
    try:
        return int(s)
    except:
        return 0
`)

	assert.Contains(t, out, "return s.parse::<i32>().unwrap_or(0);")
	assert.NotContains(t, out, "__result")
}

func TestHoistedBinding(t *testing.T) {
	out := emit(t, `
def h(s: str) -> int:
    try:
        x = int(s)
    except:
        x = -1
    return x
`)

	assert.Contains(t, out, "let mut x = Default::default();")
	assert.Contains(t, out, "x = s.parse::<i32>()?;")
	assert.Contains(t, out, "x = -1;")
	assert.Contains(t, out, "return x;")

	hoist := strings.Index(out, "let mut x = Default::default();")
	try := strings.Index(out, "__result")
	require.Greater(t, try, hoist)
}

func TestGenericBounds(t *testing.T) {
	out := emit(t, `
def max2(a: T, b: T) -> T:
    return a if a > b else b
`)

	assert.Contains(t, out, "pub fn max2<T: Clone + PartialOrd>(a: T, b: T) -> T")
	assert.Contains(t, out, "return if a > b { a } else { b };")
}

func TestMutabilityExact(t *testing.T) {
	out := emit(t, `
def count() -> int:
    total = 0
    step = 1
    total = total + step
    return total
`)

	assert.Contains(t, out, "let mut total = 0;")
	assert.Contains(t, out, "let step = 1;")
	assert.NotContains(t, out, "let mut step")
}

func TestAppendForcesMut(t *testing.T) {
	out := emit(t, `
def build() -> list[int]:
    items = []
    items.append(1)
    return items
`)

	assert.Contains(t, out, "let mut items")
	assert.Contains(t, out, "items.push(1);")
}

func TestFlooredDivisionHelper(t *testing.T) {
	out := emit(t, `
def half(a: int, b: int) -> int:
    return a // b
`)

	assert.Contains(t, out, "return floored_div(a, b);")
	assert.Contains(t, out, "fn floored_div(a: i32, b: i32) -> i32")
}

func TestPythonModulo(t *testing.T) {
	out := emit(t, `
def wrap(a: int, b: int) -> int:
    return a % b
`)

	assert.Contains(t, out, "return py_mod(a, b);")
	assert.Contains(t, out, "fn py_mod(a: i32, b: i32) -> i32")
}

func TestZeroDivisionBranch(t *testing.T) {
	out := emit(t, `
def div(a: int, b: int) -> int:
    try:
        return a // b
    except ZeroDivisionError:
        return 0
`)

	assert.Contains(t, out, "if b == 0 {")
	assert.Contains(t, out, "return 0;")
	assert.Contains(t, out, "return floored_div(a, b);")
	assert.NotContains(t, out, "__result")
}

func TestDictLiteralBlock(t *testing.T) {
	out := emit(t, `
def table() -> dict[str, int]:
    return {"a": 1, "b": 2}
`)

	assert.Contains(t, out, "use std::collections::HashMap;")
	assert.Contains(t, out, "let mut m = HashMap::new();")
	assert.Contains(t, out, `m.insert("a".to_string(), 1);`)
}

func TestTruthinessCoercion(t *testing.T) {
	out := emit(t, `
def check(n: int, s: str):
    if n:
        print(s)
    while s:
        break
`)

	assert.Contains(t, out, "if n != 0 {")
	assert.Contains(t, out, "while !s.is_empty() {")
}

func TestComprehensionChain(t *testing.T) {
	out := emit(t, `
def evens(nums: list[int]) -> list[int]:
    return [n * 2 for n in nums if n > 0]
`)

	assert.Contains(t, out, ".filter(|n| n > 0)")
	assert.Contains(t, out, ".map(|n| n * 2)")
	assert.Contains(t, out, ".collect::<Vec<_>>()")
}

func TestFStringFormat(t *testing.T) {
	out := emit(t, `
def greet(name: str) -> str:
    return f"hello {name}!"
`)

	assert.Contains(t, out, `format!("hello {}!", name)`)
}

func TestMembershipContains(t *testing.T) {
	out := emit(t, `
def has(items: list[int], x: int) -> bool:
    return x in items
`)

	assert.Contains(t, out, "items.contains(&x)")
}

func TestIndexReadBoundsChecked(t *testing.T) {
	out := emit(t, `
def first(items: list[int]) -> int:
    return items[0]
`)

	assert.Contains(t, out, "items.get(0 as usize).copied().unwrap_or_default()")
}

func TestDictIndexRead(t *testing.T) {
	out := emit(t, `
def lookup(m: dict[str, int], k: str) -> int:
    return m[k]
`)

	assert.Contains(t, out, "m.get(&k).cloned().unwrap_or_default()")
}

func TestNegativeSliceNormalized(t *testing.T) {
	out := emit(t, `
def tail(items: list[int]) -> list[int]:
    return items[-3:]
`)

	assert.Contains(t, out, "items.len().saturating_sub(3)")
	assert.NotContains(t, out, "(-3) as usize")
}

func TestNegativeIndexCountsFromEnd(t *testing.T) {
	out := emit(t, `
def last(items: list[int]) -> int:
    return items[-1]
`)

	assert.Contains(t, out, "items.get(items.len().saturating_sub(1)).copied().unwrap_or_default()")
}

func TestSlicedStringReturnStaysOwned(t *testing.T) {
	out := emit(t, `
def tail(s: str) -> str:
    return s[1:]
`)

	// Slicing produces an owned String, so the signature must not carry
	// a borrowed return or lifetime parameters.
	assert.Contains(t, out, "pub fn tail(s: &str) -> String {")
	assert.Contains(t, out, ".collect::<String>()")
	assert.NotContains(t, out, "'a")
}

func TestSubprocessRunLowering(t *testing.T) {
	out := emit(t, `
import subprocess

def run_it(cmd: list[str]) -> None:
    subprocess.run(cmd, cwd="/tmp")
`)

	assert.Contains(t, out, "std::process::Command::new(&cmd[0]).args(&cmd[1..])")
	assert.Contains(t, out, `.current_dir(&"/tmp".to_string())`)
	assert.Contains(t, out, ".status().unwrap()")
}

func TestNasaModeDatetimeShims(t *testing.T) {
	src := `
import datetime

def stamp():
    return datetime.datetime.now()
`
	out := emitWith(t, src, Options{NASAMode: true})

	assert.Contains(t, out, "DepylerDateTime::now()")
	assert.Contains(t, out, "pub struct DepylerDateTime")
	assert.NotContains(t, out, "chrono")
}

func TestChronoWithoutNasaMode(t *testing.T) {
	out := emit(t, `
import datetime

def stamp():
    return datetime.datetime.now()
`)

	assert.Contains(t, out, "chrono::Local::now().naive_local()")
	assert.NotContains(t, out, "DepylerDateTime")
}

func TestRegexLowering(t *testing.T) {
	out := emit(t, `
import re

def check(s: str) -> bool:
    return re.match(r"\d+", s)
`)

	assert.Contains(t, out, "use regex::Regex;")
	assert.Contains(t, out, `Regex::new("\\d+").unwrap().is_match(&s)`)
}

func TestExceptionClassStruct(t *testing.T) {
	out := emit(t, `
class ParseFailure(Exception):
    pass
`)

	assert.Contains(t, out, "pub struct ParseFailure")
	assert.Contains(t, out, "impl std::error::Error for ParseFailure {}")
	assert.Contains(t, out, "impl std::fmt::Display for ParseFailure")
}

func TestClassWithConstructor(t *testing.T) {
	out := emit(t, `
class Point:
    x: int
    y: int

    def __init__(self, x: int, y: int):
        self.x = x
        self.y = y

    def dist(self) -> int:
        return self.x + self.y
`)

	assert.Contains(t, out, "pub struct Point")
	assert.Contains(t, out, "pub x: i32,")
	assert.Contains(t, out, "pub fn new(x: i32, y: i32) -> Self")
	assert.Contains(t, out, "&self")
}

func TestDocstringAndPanicFree(t *testing.T) {
	out := emit(t, `
def add(a: int, b: int) -> int:
    """Add two numbers."""
    return a + b
`)

	assert.Contains(t, out, "/// Add two numbers.")
}

func TestPowIntegerLiteral(t *testing.T) {
	out := emit(t, `
def sq(n: int) -> int:
    return n ** 2
`)

	assert.Contains(t, out, "i32::pow(n, 2)")
}

func TestStringMethods(t *testing.T) {
	out := emit(t, `
def norm(s: str) -> str:
    return s.strip().lower()
`)

	assert.Contains(t, out, "s.trim().to_string()")
}

func TestForRangeLoop(t *testing.T) {
	out := emit(t, `
def total(n: int) -> int:
    acc = 0
    for i in range(n):
        acc = acc + i
    return acc
`)

	assert.Contains(t, out, "for i in (0..n) {")
	assert.Contains(t, out, "let mut acc = 0;")
}

func TestDictItemsIteration(t *testing.T) {
	out := emit(t, `
def dump(m: dict[str, int]):
    for k, v in m.items():
        print(k)
`)

	assert.Contains(t, out, "for (k, v) in m.iter() {")
}

func TestWithOpenScopesFile(t *testing.T) {
	out := emit(t, `
def read(path: str):
    with open(path) as f:
        print(path)
`)

	assert.Contains(t, out, "std::fs::File::open(&path)")
}

func TestNestedDefBecomesClosure(t *testing.T) {
	out := emit(t, `
def outer(n: int) -> int:
    def double(x: int) -> int:
        return x * 2
    return double(n)
`)

	assert.Contains(t, out, "let double = move |x: i32| -> i32 {")
	assert.Contains(t, out, "return double(n);")
}

func TestDeterministicEmission(t *testing.T) {
	src := `
def pair(a: int, b: str) -> str:
    items = {"x": 1}
    tags = {1, 2}
    return b
`

	first := emit(t, src)
	second := emit(t, src)
	assert.Equal(t, first, second)

	// Import block stays sorted.
	hm := strings.Index(first, "use std::collections::HashMap;")
	hs := strings.Index(first, "use std::collections::HashSet;")
	require.Greater(t, hs, hm)
}
