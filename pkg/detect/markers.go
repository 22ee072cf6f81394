package detect

const (
	existsPythonManifest = `files.exists(f,
  pathBase(f) in ["requirements.txt", "pyproject.toml", "setup.py", "setup.cfg", "Pipfile"])`

	existsNodeManifest = `files.exists(f, pathBase(f) == "package.json")`

	existsTSConfig = `files.exists(f, pathBase(f) == "tsconfig.json")`

	existsGoModule = `files.exists(f, pathBase(f) == "go.mod")`

	existsJavaBuild = `files.exists(f,
  pathBase(f) in ["pom.xml", "build.gradle", "build.gradle.kts"])`

	existsCargoManifest = `files.exists(f, pathBase(f) == "Cargo.toml")`

	existsDotnetProject = `files.exists(f, pathExt(f) in [".csproj", ".sln", ".fsproj"])`

	existsGemfile = `files.exists(f, pathBase(f) in ["Gemfile", "Gemfile.lock"])`
)

// pythonDependsOn matches Python manifests declaring the package.
func pythonDependsOn(pkg string) string {
	return `files.exists(f,
  pathBase(f) in ["requirements.txt", "pyproject.toml", "setup.py", "setup.cfg", "Pipfile"] &&
  fileMatches(f, r"(?i)(^|[^a-z0-9_-])` + pkg + `([^a-z0-9_-]|$)"))`
}

// nodeDependsOn matches package.json manifests listing the package.
func nodeDependsOn(pkg string) string {
	return `files.exists(f,
  pathBase(f) == "package.json" &&
  fileContains(f, "\"` + pkg + `\""))`
}

// goRequires matches go.mod files requiring the module.
func goRequires(module string) string {
	return `files.exists(f,
  pathBase(f) == "go.mod" &&
  fileContains(f, "` + module + `"))`
}

// DefaultMarkers returns the built-in markers, in evaluation order.
func DefaultMarkers() []*Marker {
	return []*Marker{
		// Languages.
		MustNewMarker(KindLanguage, "python", existsPythonManifest),
		MustNewMarker(KindLanguage, "typescript", existsNodeManifest+" && "+existsTSConfig),
		MustNewMarker(KindLanguage, "javascript", existsNodeManifest+" && !"+existsTSConfig),
		MustNewMarker(KindLanguage, "go", existsGoModule),
		MustNewMarker(KindLanguage, "java", existsJavaBuild),
		MustNewMarker(KindLanguage, "rust", existsCargoManifest),
		MustNewMarker(KindLanguage, "csharp", existsDotnetProject),
		MustNewMarker(KindLanguage, "ruby", existsGemfile),

		// Frameworks.
		MustNewMarker(KindFramework, "fastapi", pythonDependsOn("fastapi")),
		MustNewMarker(KindFramework, "django", `files.exists(f, pathBase(f) == "manage.py") || `+pythonDependsOn("django")),
		MustNewMarker(KindFramework, "flask", pythonDependsOn("flask")),
		MustNewMarker(KindFramework, "react", nodeDependsOn("react")),
		MustNewMarker(KindFramework, "nextjs",
			`files.exists(f, pathBase(f) in ["next.config.js", "next.config.mjs", "next.config.ts"]) || `+nodeDependsOn("next")),
		MustNewMarker(KindFramework, "express", nodeDependsOn("express")),
		MustNewMarker(KindFramework, "nestjs", nodeDependsOn("@nestjs/core")),
		MustNewMarker(KindFramework, "spring-boot", `files.exists(f,
  pathBase(f) in ["pom.xml", "build.gradle", "build.gradle.kts"] &&
  fileContains(f, "spring-boot"))`),
		MustNewMarker(KindFramework, "gin", goRequires("github.com/gin-gonic/gin")),
		MustNewMarker(KindFramework, "echo", goRequires("github.com/labstack/echo")),

		// Cloud providers.
		MustNewMarker(KindCloud, "aws", `dirs.exists(d, pathBase(d) == "terraform" || pathMatch("**/.aws-sam", d)) ||
  files.exists(f, pathBase(f) in ["cdk.json", "serverless.yml", "serverless.yaml", "samconfig.toml"])`),
		MustNewMarker(KindCloud, "vercel", `files.exists(f, pathBase(f) == "vercel.json") ||
  dirs.exists(d, pathBase(d) == ".vercel")`),
		MustNewMarker(KindCloud, "azure", `files.exists(f, pathBase(f) in ["azure.yaml", "azure-pipelines.yml"]) ||
  dirs.exists(d, pathBase(d) == ".azure")`),
		MustNewMarker(KindCloud, "gcp", `files.exists(f, pathBase(f) in ["app.yaml", "cloudbuild.yaml", ".gcloudignore"])`),

		// Maturity signals.
		MustNewMarker(KindMaturity, "ci", `dirs.exists(d, pathBase(d) == "workflows" && pathBase(pathDir(d)) == ".github") ||
  files.exists(f, pathBase(f) in [".gitlab-ci.yml", "Jenkinsfile", "azure-pipelines.yml", ".travis.yml"])`),
		MustNewMarker(KindMaturity, "container", `files.exists(f,
  pathBase(f) in ["Dockerfile", "Containerfile", "docker-compose.yml", "docker-compose.yaml", "compose.yaml"])`),
		MustNewMarker(KindMaturity, "stable-version", `files.exists(f,
  pathBase(f) in ["package.json", "pyproject.toml", "Cargo.toml", "setup.cfg"] &&
  fileMatches(f, r'(?m)^\s*"?version"?\s*[:=]\s*"[1-9][0-9]*\.[0-9]+'))`),
	}
}
