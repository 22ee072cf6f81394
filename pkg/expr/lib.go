package expr

import (
	"bytes"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"regexp"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/goccy/go-yaml"
	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/ext"
)

// MaxReadBytes limits how much of a file the content functions inspect.
const MaxReadBytes = 1 << 20

type lib struct{}

func (lib) CompileOptions() []cel.EnvOption {
	return []cel.EnvOption{
		ext.Math(),
		ext.Strings(),
		ext.Lists(),

		// `pathBase` returns the last element of the path.
		// Example: files.exists(f, pathBase(f) in ["requirements.txt", "pyproject.toml"]).
		cel.Function("pathBase",
			cel.Overload("path_base", []*cel.Type{cel.StringType}, cel.StringType,
				cel.UnaryBinding(func(path ref.Val) ref.Val {
					pathValue, ok := path.(types.String).Value().(string)
					if !ok {
						return types.NewErr("pathBase: invalid string value")
					}

					return types.String(filepath.Base(pathValue))
				}),
			),
		),

		// `pathDir` returns all but the last element of the path.
		// Example: files.exists(f, pathDir(f).endsWith("/.github/workflows")).
		cel.Function("pathDir",
			cel.Overload("path_dir", []*cel.Type{cel.StringType}, cel.StringType,
				cel.UnaryBinding(func(path ref.Val) ref.Val {
					pathValue, ok := path.(types.String).Value().(string)
					if !ok {
						return types.NewErr("pathDir: invalid string value")
					}

					return types.String(filepath.Dir(pathValue))
				}),
			),
		),

		// `pathExt` returns the file extension of the path.
		// Example: files.exists(f, pathExt(f) in [".cs", ".csproj"]).
		cel.Function("pathExt",
			cel.Overload("path_ext", []*cel.Type{cel.StringType}, cel.StringType,
				cel.UnaryBinding(func(path ref.Val) ref.Val {
					pathValue, ok := path.(types.String).Value().(string)
					if !ok {
						return types.NewErr("pathExt: invalid string value")
					}

					return types.String(filepath.Ext(pathValue))
				}),
			),
		),

		// `pathMatch` reports whether the path matches a doublestar glob.
		// Example: dirs.exists(d, pathMatch("**/terraform", d)).
		cel.Function("pathMatch",
			cel.Overload("path_match", []*cel.Type{cel.StringType, cel.StringType}, cel.BoolType,
				cel.BinaryBinding(func(pattern, path ref.Val) ref.Val {
					patternStr, ok := pattern.(types.String).Value().(string)
					if !ok {
						return types.NewErr("pathMatch: invalid pattern")
					}

					pathStr, ok := path.(types.String).Value().(string)
					if !ok {
						return types.NewErr("pathMatch: invalid path")
					}

					matched, err := doublestar.Match(patternStr, filepath.ToSlash(pathStr))
					if err != nil {
						return types.NewErr("pathMatch: %v", err)
					}

					return types.Bool(matched)
				}),
			),
		),

		// `fileContains` reports whether the file contains the substring.
		// Unreadable files never match.
		// Example: files.exists(f, pathBase(f) == "go.mod" && fileContains(f, "github.com/gin-gonic/gin")).
		cel.Function("fileContains",
			cel.Overload("file_contains", []*cel.Type{cel.StringType, cel.StringType}, cel.BoolType,
				cel.BinaryBinding(func(filePath, substr ref.Val) ref.Val {
					filePathStr, ok := filePath.(types.String).Value().(string)
					if !ok {
						return types.NewErr("fileContains: invalid file path")
					}

					substrStr, ok := substr.(types.String).Value().(string)
					if !ok {
						return types.NewErr("fileContains: invalid substring")
					}

					content, err := readHead(filePathStr)
					if err != nil {
						slog.Debug("failed to read file, returning false",
							slog.String("file", filePathStr),
							slog.Any("error", err),
						)

						return types.False
					}

					return types.Bool(bytes.Contains(content, []byte(substrStr)))
				}),
			),
		),

		// `fileMatches` reports whether the file content matches the RE2 regex.
		// Example: files.exists(f, pathBase(f) == "package.json" && fileMatches(f, `"version":\s*"[1-9]`)).
		cel.Function("fileMatches",
			cel.Overload("file_matches", []*cel.Type{cel.StringType, cel.StringType}, cel.BoolType,
				cel.BinaryBinding(func(filePath, pattern ref.Val) ref.Val {
					filePathStr, ok := filePath.(types.String).Value().(string)
					if !ok {
						return types.NewErr("fileMatches: invalid file path")
					}

					patternStr, ok := pattern.(types.String).Value().(string)
					if !ok {
						return types.NewErr("fileMatches: invalid pattern")
					}

					re, err := regexp.Compile(patternStr)
					if err != nil {
						return types.NewErr("fileMatches: %v", err)
					}

					content, err := readHead(filePathStr)
					if err != nil {
						slog.Debug("failed to read file, returning false",
							slog.String("file", filePathStr),
							slog.Any("error", err),
						)

						return types.False
					}

					return types.Bool(re.Match(content))
				}),
			),
		),

		// `yamlPath` reads a YAML (or JSON) file and extracts a value using a YAML path.
		// Returns null if the path doesn't exist or the file can't be read.
		// Example: files.exists(f, pathBase(f) == "package.json" && yamlPath(f, "$.dependencies.react") != null).
		cel.Function("yamlPath",
			cel.Overload("yaml_path", []*cel.Type{cel.StringType, cel.StringType}, cel.DynType,
				cel.BinaryBinding(func(filePath, yamlPathExpr ref.Val) ref.Val {
					filePathStr, ok := filePath.(types.String).Value().(string)
					if !ok {
						return types.NewErr("yamlPath: invalid file path")
					}

					yamlPathStr, ok := yamlPathExpr.(types.String).Value().(string)
					if !ok {
						return types.NewErr("yamlPath: invalid yaml path")
					}

					logger := slog.With(
						slog.String("file", filePathStr),
						slog.String("yamlPath", yamlPathStr),
					)

					content, err := readHead(filePathStr)
					if err != nil {
						logger.Debug("failed to read YAML file, returning null",
							slog.Any("error", err),
						)

						return types.NullValue
					}

					path, err := yaml.PathString(yamlPathStr)
					if err != nil {
						logger.Debug("invalid YAML path, returning null",
							slog.Any("error", err),
						)

						return types.NullValue
					}

					var value any

					err = path.Read(bytes.NewReader(content), &value)
					if err != nil {
						logger.Debug("failed to extract value from YAML, returning null",
							slog.Any("error", err),
						)

						return types.NullValue
					}

					return ConvertToCELValue(value)
				}),
			),
		),
	}
}

func (lib) ProgramOptions() []cel.ProgramOption {
	return []cel.ProgramOption{}
}

func readHead(path string) ([]byte, error) {
	f, err := os.Open(path) //nolint:gosec // G304: paths come from the directory listing.
	if err != nil {
		return nil, err //nolint:wrapcheck // Only logged.
	}
	defer f.Close() //nolint:errcheck // Read-only.

	return io.ReadAll(io.LimitReader(f, MaxReadBytes)) //nolint:wrapcheck // Only logged.
}

// ConvertToCELValue converts a Go value to a CEL value.
// Handles common YAML types and returns null for unsupported types.
//
//nolint:ireturn // Following CEL's function signature.
func ConvertToCELValue(value any) ref.Val {
	switch v := value.(type) {
	case nil:
		return types.NullValue

	case bool:
		return types.Bool(v)

	case int:
		return types.Int(v)

	case int8:
		return types.Int(int64(v))

	case int16:
		return types.Int(int64(v))

	case int32:
		return types.Int(int64(v))

	case int64:
		return types.Int(v)

	case uint:
		if v > math.MaxInt64 {
			return types.Double(float64(v))
		}

		return types.Int(int64(v))

	case uint8:
		return types.Int(int64(v))

	case uint16:
		return types.Int(int64(v))

	case uint32:
		return types.Int(int64(v))

	case uint64:
		if v > math.MaxInt64 {
			return types.Double(float64(v))
		}

		return types.Int(int64(v))

	case float32:
		return types.Double(float64(v))

	case float64:
		return types.Double(v)

	case string:
		return types.String(v)

	case []any:
		celValues := make([]ref.Val, len(v))
		for i, item := range v {
			celValues[i] = ConvertToCELValue(item)
		}

		return types.NewDynamicList(types.DefaultTypeAdapter, celValues)

	case map[any]any:
		celMap := make(map[ref.Val]ref.Val)
		for key, val := range v {
			celMap[ConvertToCELValue(key)] = ConvertToCELValue(val)
		}

		return types.NewDynamicMap(types.DefaultTypeAdapter, celMap)

	case map[string]any:
		celMap := make(map[ref.Val]ref.Val)
		for key, val := range v {
			celMap[types.String(key)] = ConvertToCELValue(val)
		}

		return types.NewDynamicMap(types.DefaultTypeAdapter, celMap)

	default:
		// For unsupported types, return null instead of erroring.
		return types.NullValue
	}
}
