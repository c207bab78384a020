package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shire/internal/model"
)

func writeManifest(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestNpmParser(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "package.json", `{
		"name": "auth-service",
		"version": "1.0.0",
		"dependencies": { "shared-types": "^1.0" },
		"devDependencies": { "jest": "^29.0" }
	}`)

	rec, err := npmParser{}.Parse(path, "services/auth")
	require.NoError(t, err)
	assert.Equal(t, "auth-service", rec.Name)
	assert.Equal(t, "npm", rec.Kind)
	require.Len(t, rec.Dependencies, 2)
}

func TestNpmParserWorkspacePrefixStripped(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "package.json", `{
		"name": "x",
		"dependencies": { "shared-types": "workspace:^1.0" }
	}`)
	rec, err := npmParser{}.Parse(path, "x")
	require.NoError(t, err)
	require.Len(t, rec.Dependencies, 1)
	assert.Equal(t, "^1.0", rec.Dependencies[0].VersionReq)
}

func TestNpmParserFallsBackToDirName(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "package.json", `{}`)
	rec, err := npmParser{}.Parse(path, "services/gateway")
	require.NoError(t, err)
	assert.Equal(t, "services-gateway", rec.Name)
}

func TestGoModParserSingleLineRequire(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "go.mod", "module github.com/company/gateway\n\ngo 1.22\n\nrequire github.com/spf13/cobra v1.8.0 // indirect\n")
	rec, err := goModParser{}.Parse(path, "services/gateway")
	require.NoError(t, err)
	assert.Equal(t, "gateway", rec.Name)
	assert.Equal(t, "1.22", rec.Version)
	require.Len(t, rec.Dependencies, 1)
	assert.Equal(t, "github.com/spf13/cobra", rec.Dependencies[0].Name)
	assert.Equal(t, "v1.8.0", rec.Dependencies[0].VersionReq)
}

func TestGoModParserRequireBlock(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "go.mod", `module example.com/widget

go 1.22

require (
	github.com/a/b v1.0.0
	// a comment line
	github.com/c/d v2.0.0 // indirect
)
`)
	rec, err := goModParser{}.Parse(path, "widget")
	require.NoError(t, err)
	require.Len(t, rec.Dependencies, 2)
	assert.Equal(t, "github.com/a/b", rec.Dependencies[0].Name)
	assert.Equal(t, "github.com/c/d", rec.Dependencies[1].Name)
}

func TestCargoParser(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "Cargo.toml", `
[package]
name = "widget"
version = "0.1.0"

[dependencies]
serde = { version = "1.0", features = ["derive"] }
anyhow = "1.0"

[dev-dependencies]
tempfile = "3.0"
`)
	rec, err := cargoParser{}.Parse(path, "widget")
	require.NoError(t, err)
	assert.Equal(t, "widget", rec.Name)
	require.Len(t, rec.Dependencies, 3)

	byName := map[string]model.ManifestDependency{}
	for _, d := range rec.Dependencies {
		byName[d.Name] = d
	}
	assert.Equal(t, "1.0", byName["serde"].VersionReq)
	assert.Equal(t, "1.0", byName["anyhow"].VersionReq)
	assert.Equal(t, model.DepDev, byName["tempfile"].DepKind)
}

func TestPythonParser(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "pyproject.toml", `
[project]
name = "ml-pipeline"
version = "0.2.0"
dependencies = ["torch>=2.0", "numpy"]

[project.optional-dependencies]
dev = ["pytest>=7.0; python_version >= '3.8'"]
`)
	rec, err := pythonParser{}.Parse(path, "services/ml")
	require.NoError(t, err)
	assert.Equal(t, "ml-pipeline", rec.Name)
	require.Len(t, rec.Dependencies, 3)

	byName := map[string]model.ManifestDependency{}
	for _, d := range rec.Dependencies {
		byName[d.Name] = d
	}
	assert.Equal(t, ">=2.0", byName["torch"].VersionReq)
	assert.Equal(t, model.DepDev, byName["pytest"].DepKind)
}

func TestMavenAggregatorRejected(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "pom.xml", `<project>
	<groupId>com.example</groupId>
	<packaging>pom</packaging>
	<modules><module>child</module></modules>
</project>`)
	doc, err := ParsePOM(path)
	require.NoError(t, err)
	assert.True(t, IsAggregator(doc))
}

func TestMavenParentResolution(t *testing.T) {
	dir := t.TempDir()
	rootPath := writeManifest(t, dir, "root-pom.xml", `<project>
	<groupId>com.example</groupId>
	<artifactId>parent</artifactId>
	<version>2.0.0</version>
	<packaging>pom</packaging>
	<modules><module>child</module></modules>
	<dependencyManagement>
		<dependencies>
			<dependency>
				<groupId>com.google.guava</groupId>
				<artifactId>guava</artifactId>
				<version>32.1</version>
			</dependency>
		</dependencies>
	</dependencyManagement>
</project>`)
	rootDoc, err := ParsePOM(rootPath)
	require.NoError(t, err)
	require.True(t, IsAggregator(rootDoc))

	parents := map[string]ParentInfo{
		"com.example:parent": {
			GroupID:              rootDoc.GroupID,
			Version:              rootDoc.Version,
			DependencyManagement: DependencyManagementMap(rootDoc),
		},
	}

	childPath := writeManifest(t, dir, "child-pom.xml", `<project>
	<artifactId>child-service</artifactId>
	<parent>
		<groupId>com.example</groupId>
		<artifactId>parent</artifactId>
		<version>2.0.0</version>
	</parent>
	<dependencies>
		<dependency>
			<groupId>com.google.guava</groupId>
			<artifactId>guava</artifactId>
		</dependency>
	</dependencies>
</project>`)
	childDoc, err := ParsePOM(childPath)
	require.NoError(t, err)

	rec, err := ResolvePackage(childDoc, "child", parents)
	require.NoError(t, err)
	assert.Equal(t, "com.example:child-service", rec.Name)
	assert.Equal(t, "2.0.0", rec.Version)
	require.Len(t, rec.Dependencies, 1)
	assert.Equal(t, "32.1", rec.Dependencies[0].VersionReq)
}

func TestGradleParser(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "build.gradle", `
group = 'com.example'
version = '1.0.0'

dependencies {
    implementation 'com.google.guava:guava:32.1'
    testImplementation 'junit:junit:4.13'
    implementation project(':shared')
}
`)
	rec, err := gradleParser{}.Parse(path, "services/api")
	require.NoError(t, err)
	assert.Equal(t, "com.example:api", rec.Name)
	require.Len(t, rec.Dependencies, 3)
}

func TestPerlParser(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "cpanfile", `
requires 'Moose';
requires 'JSON::XS', '3.0';

on 'test' => sub {
    requires 'Test::More';
};
`)
	rec, err := perlParser{}.Parse(path, "lib/widget")
	require.NoError(t, err)
	require.Len(t, rec.Dependencies, 3)
	assert.Equal(t, model.DepRuntime, rec.Dependencies[0].DepKind)
	assert.Equal(t, model.DepDev, rec.Dependencies[2].DepKind)
}

func TestRubyParser(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "Gemfile", `
gem 'rails', '7.0'

group :test do
  gem 'rspec'
end
`)
	rec, err := rubyParser{}.Parse(path, "app")
	require.NoError(t, err)
	require.Len(t, rec.Dependencies, 2)
	assert.Equal(t, model.DepRuntime, rec.Dependencies[0].DepKind)
	assert.Equal(t, model.DepDev, rec.Dependencies[1].DepKind)
}

func TestParseGoWork(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "go.work", `go 1.22

use (
	./services/gateway
	./services/worker
)
`)
	dirs, err := ParseGoWork(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"./services/gateway", "./services/worker"}, dirs)
}

func TestParseSettingsGradle(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "settings.gradle", `
rootProject.name = 'platform'
include ':api'
include(':libs:shared')
`)
	settings, err := ParseSettingsGradle(path)
	require.NoError(t, err)
	assert.Equal(t, "platform", settings.RootProjectName)
	assert.Equal(t, []string{"api", "libs/shared"}, settings.IncludedPaths)
}
