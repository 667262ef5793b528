package codegen

import (
	"fmt"
	"strings"

	"github.com/depyler-lang/depyler/internal/diagnostics"
	"github.com/depyler-lang/depyler/internal/hir"
)

// stdlibLowering maps one Python stdlib call to Rust. recv is unused for
// plain module functions; args are the already-lowered argument texts.
type stdlibLowering func(c *Ctx, n *hir.MethodCall, args []string) (string, error)

// stdlibTables maps "module.function" to its lowering. Module paths use
// the canonical import name (aliases are resolved before lookup).
// Populated in init: several lowerings recurse through genExpr, which
// dispatches back into this table.
var stdlibTables map[string]stdlibLowering

func init() {
	stdlibTables = map[string]stdlibLowering{
		// re
		"re.match":   reMatch,
		"re.search":  reMatch,
		"re.findall": reFindall,
		"re.sub":     reSub,

		// math
		"math.sqrt":  mathUnary("sqrt"),
		"math.floor": mathFloor("floor"),
		"math.ceil":  mathFloor("ceil"),
		"math.fabs":  mathUnary("abs"),
		"math.pow": func(c *Ctx, n *hir.MethodCall, args []string) (string, error) {
			return fmt.Sprintf("f64::powf(%s as f64, %s as f64)", args[0], args[1]), nil
		},

		// json
		"json.dumps": func(c *Ctx, n *hir.MethodCall, args []string) (string, error) {
			c.Needs.SerdeJson = true

			return fmt.Sprintf("serde_json::to_string(&%s).unwrap()", args[0]), nil
		},
		"json.loads": func(c *Ctx, n *hir.MethodCall, args []string) (string, error) {
			c.Needs.SerdeJson = true

			return fmt.Sprintf("serde_json::from_str::<serde_json::Value>(&%s).unwrap()", args[0]), nil
		},

		// os.path
		"os.path.join": func(c *Ctx, n *hir.MethodCall, args []string) (string, error) {
			out := fmt.Sprintf("std::path::Path::new(&%s)", args[0])
			for _, a := range args[1:] {
				out += fmt.Sprintf(".join(&%s)", a)
			}

			return out + ".to_string_lossy().to_string()", nil
		},
		"os.path.exists": func(c *Ctx, n *hir.MethodCall, args []string) (string, error) {
			return fmt.Sprintf("std::path::Path::new(&%s).exists()", args[0]), nil
		},
		"os.path.basename": pathComponent("file_name"),
		"os.path.dirname":  pathComponent("parent"),

		// subprocess
		"subprocess.run": subprocessRun,

		// datetime
		"datetime.datetime.now": func(c *Ctx, n *hir.MethodCall, args []string) (string, error) {
			if c.Mapper.NASAMode {
				c.Needs.DateTimeShims = true

				return "DepylerDateTime::now()", nil
			}

			c.Needs.Chrono = true

			return "chrono::Local::now().naive_local()", nil
		},
		"datetime.date.today": func(c *Ctx, n *hir.MethodCall, args []string) (string, error) {
			if c.Mapper.NASAMode {
				c.Needs.DateTimeShims = true

				return "DepylerDate::today()", nil
			}

			c.Needs.Chrono = true

			return "chrono::Local::now().date_naive()", nil
		},
		"datetime.timedelta": func(c *Ctx, n *hir.MethodCall, args []string) (string, error) {
			return timedeltaCtor(c, n)
		},

		// collections
		"collections.deque": func(c *Ctx, n *hir.MethodCall, args []string) (string, error) {
			if len(args) == 1 {
				return fmt.Sprintf("std::collections::VecDeque::from(%s)", args[0]), nil
			}

			return "std::collections::VecDeque::new()", nil
		},
		"collections.defaultdict": func(c *Ctx, n *hir.MethodCall, args []string) (string, error) {
			c.Needs.HashMap = true

			return "HashMap::new()", nil
		},
		"collections.Counter": func(c *Ctx, n *hir.MethodCall, args []string) (string, error) {
			c.Needs.HashMap = true

			if len(args) == 0 {
				return "HashMap::<_, i32>::new()", nil
			}

			return fmt.Sprintf("{ let mut m: HashMap<_, i32> = HashMap::new(); for x in %s.iter().cloned() { *m.entry(x).or_insert(0) += 1; } m }", args[0]), nil
		},
	}
}

// stdlibAttrs maps module attributes read in value position.
var stdlibAttrs = map[string]string{
	"math.pi":                "std::f64::consts::PI",
	"math.e":                 "std::f64::consts::E",
	"math.inf":               "f64::INFINITY",
	"math.nan":               "f64::NAN",
	"string.ascii_lowercase": `"abcdefghijklmnopqrstuvwxyz".to_string()`,
	"string.ascii_uppercase": `"ABCDEFGHIJKLMNOPQRSTUVWXYZ".to_string()`,
	"string.digits":          `"0123456789".to_string()`,
	"string.punctuation":     `"!\"#$%&'()*+,-./:;<=>?@[\\]^_` + "`" + `{|}~".to_string()`,
	"sys.maxsize":            "i64::MAX",
	"os.linesep":             `"\n".to_string()`,
}

func stdlibAttr(module, attr string) (string, bool) {
	out, ok := stdlibAttrs[module+"."+attr]

	return out, ok
}

// genStdlibCall lowers a module-function call. Unknown functions on a
// known module fall back to a same-name call, which rustc will then
// report; that error is the convergence loop's signal.
func (c *Ctx) genStdlibCall(module string, n *hir.MethodCall) (string, error) {
	args, err := c.genArgs(n.Args)
	if err != nil {
		return "", err
	}

	if fn, ok := stdlibTables[module+"."+n.Method]; ok {
		return fn(c, n, args)
	}

	return fmt.Sprintf("%s::%s(%s)", strings.ReplaceAll(module, ".", "::"), n.Method, strings.Join(args, ", ")), nil
}

func regexArg(c *Ctx, n *hir.MethodCall, i int, args []string) string {
	if lit, ok := c.strLit(n.Args[i]); ok {
		return lit
	}

	return "&" + args[i]
}

func reMatch(c *Ctx, n *hir.MethodCall, args []string) (string, error) {
	if len(args) != 2 {
		return "", diagnostics.Lowering(n.GetSpan(), "re."+n.Method+" takes pattern and string")
	}

	c.Needs.Regex = true

	return fmt.Sprintf("Regex::new(%s).unwrap().is_match(%s)",
		regexArg(c, n, 0, args), regexArg(c, n, 1, args)), nil
}

func reFindall(c *Ctx, n *hir.MethodCall, args []string) (string, error) {
	if len(args) != 2 {
		return "", diagnostics.Lowering(n.GetSpan(), "re.findall takes pattern and string")
	}

	c.Needs.Regex = true

	return fmt.Sprintf("Regex::new(%s).unwrap().find_iter(%s).map(|m| m.as_str().to_string()).collect::<Vec<String>>()",
		regexArg(c, n, 0, args), regexArg(c, n, 1, args)), nil
}

func reSub(c *Ctx, n *hir.MethodCall, args []string) (string, error) {
	if len(args) != 3 {
		return "", diagnostics.Lowering(n.GetSpan(), "re.sub takes pattern, replacement and string")
	}

	c.Needs.Regex = true

	return fmt.Sprintf("Regex::new(%s).unwrap().replace_all(%s, %s).to_string()",
		regexArg(c, n, 0, args), regexArg(c, n, 2, args), regexArg(c, n, 1, args)), nil
}

func mathUnary(method string) stdlibLowering {
	return func(c *Ctx, n *hir.MethodCall, args []string) (string, error) {
		return fmt.Sprintf("(%s as f64).%s()", args[0], method), nil
	}
}

// mathFloor covers floor/ceil, which Python returns as int.
func mathFloor(method string) stdlibLowering {
	return func(c *Ctx, n *hir.MethodCall, args []string) (string, error) {
		return fmt.Sprintf("(%s as f64).%s() as i32", args[0], method), nil
	}
}

func pathComponent(method string) stdlibLowering {
	return func(c *Ctx, n *hir.MethodCall, args []string) (string, error) {
		return fmt.Sprintf("std::path::Path::new(&%s).%s().map(|p| p.to_string_lossy().to_string()).unwrap_or_default()",
			args[0], method), nil
	}
}

// subprocessRun lowers subprocess.run(cmd_list, cwd=...) to
// std::process::Command. The command must be a list expression.
func subprocessRun(c *Ctx, n *hir.MethodCall, args []string) (string, error) {
	if len(args) == 0 {
		return "", diagnostics.Lowering(n.GetSpan(), "subprocess.run needs a command")
	}

	out := fmt.Sprintf("std::process::Command::new(&%s[0]).args(&%s[1..])", args[0], args[0])

	if cwd, ok := n.Kwargs["cwd"]; ok {
		dir, err := c.genExpr(cwd)
		if err != nil {
			return "", err
		}

		out += fmt.Sprintf(".current_dir(&%s)", dir)
	}

	return out + ".status().unwrap()", nil
}

// timedeltaCtor lowers datetime.timedelta(days=..., seconds=...).
func timedeltaCtor(c *Ctx, n *hir.MethodCall) (string, error) {
	unitCtor := func(unit, amount string) string {
		if c.Mapper.NASAMode {
			c.Needs.DateTimeShims = true

			return fmt.Sprintf("DepylerTimeDelta::%s(%s as i64)", unit, amount)
		}

		c.Needs.Chrono = true

		return fmt.Sprintf("chrono::Duration::%s(%s as i64)", unit, amount)
	}

	for _, unit := range []string{"days", "seconds", "minutes", "hours", "weeks"} {
		if arg, ok := n.Kwargs[unit]; ok {
			amount, err := c.genExpr(arg)
			if err != nil {
				return "", err
			}

			return unitCtor(unit, amount), nil
		}
	}

	return "", diagnostics.Lowering(n.GetSpan(), "timedelta needs a duration keyword")
}
