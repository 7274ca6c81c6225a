//go:build mage
// +build mage

package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	packageName = "github.com/chembl/drugname2inchi"
	binary      = "build/drugname2inchi"
)

var ldflags = "-X main.version=$VERSION -X main.buildDate=$BUILD_DATE"

// Builds the binary with the version and build date info
func Build() error {
	log.Print("running go build")
	return sh.RunWith(flagEnv(), "go", "build", "-o", binary, "-ldflags", ldflags, packageName)
}

func flagEnv() map[string]string {
	version, err := sh.Output("git", "describe", "--tags", "--always")
	if err != nil {
		version = "dev"
	}
	return map[string]string{
		"VERSION":    version,
		"BUILD_DATE": time.Now().Format("2006-01-02T15:04:05Z0700"),
	}
}

// Runs the unit tests with the race detector
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Regenerates the mocks
func Generate() error {
	return sh.RunV("go", "generate", "./...")
}

// Copies the binary into GOPATH/bin
func Install() error {
	mg.Deps(Build)
	fmt.Println("Installing...")
	gopath, err := sh.Output("go", "env", "GOPATH")
	if err != nil {
		return err
	}
	return sh.Copy(gopath+"/bin/drugname2inchi", binary)
}

// Clean up after yourself
func Clean() {
	fmt.Println("Cleaning...")
	os.RemoveAll("build")
}
