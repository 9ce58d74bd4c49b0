// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	NoRuntimeFoundId Id = iota + 1
	EnvironmentNotFoundId
	EnvironmentAlreadyExistsId
	ImagePullFailedId
	ImageBuildFailedId
	DetachedRunFailedId
	ExportFailedId
	ImportFailedId
	ConfigLoadFailedId
	SifCacheUnwritableId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // must never be empty, because we need to have docs about all issue types
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n"
		extraMd += "## See also: "
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "]"
		}
		for _, link := range i.extLinks {
			extraMd += "- [" + string(link) + "]"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	noRuntimeFoundIssue = &Issue{
		id: NoRuntimeFoundId,
		mdMsg: `
# No container runtime found!

venvoy needs one of Docker, Apptainer, Singularity, or Podman on your PATH
to run environments.

## Things you can try:
- On a workstation, install Docker Desktop or Podman
- On an HPC cluster, load the site module:
~~~
$ module load apptainer
~~~
  or
~~~
$ module load singularity
~~~
- If venvoy is itself running inside one of its containers, make sure the
  launcher passed VENVOY_HOST_RUNTIME through`,
		docLinks: []HttpLink{"https://github.com/venvoy/venvoy#runtimes"},
		extLinks: []HttpLink{"https://apptainer.org/docs/admin/main/installation.html"},
	}

	environmentNotFoundIssue = &Issue{
		id: EnvironmentNotFoundId,
		mdMsg: `
# Environment not found!

No environment with that name is registered on this machine.

## Things you can try:
- List what exists:
~~~
$ venvoy list
~~~
- Create it:
~~~
$ venvoy init --name <name>
~~~
- Import it from a teammate's export:
~~~
$ venvoy import <name>.tar.gz
~~~`,
		docLinks: []HttpLink{"https://github.com/venvoy/venvoy#environments"},
	}

	environmentAlreadyExistsIssue = &Issue{
		id: EnvironmentAlreadyExistsId,
		mdMsg: `
# Environment already exists!

An environment with that name is already registered.

## Things you can try:
- Pick another name, or just enter the existing environment:
~~~
$ venvoy run --name <name>
~~~
- Check what is registered:
~~~
$ venvoy list
~~~`,
		docLinks: []HttpLink{"https://github.com/venvoy/venvoy#environments"},
	}

	imagePullFailedIssue = &Issue{
		id: ImagePullFailedId,
		mdMsg: `
# Image pull failed!

The selected container runtime could not fetch the environment image.

## Common causes:
- No network access (compute nodes often have none — pull on a login node first)
- Registry authentication required
- A typo in the image reference

## Things you can try:
~~~
$ venvoy status
~~~
  shows which runtime was selected and its version.`,
		docLinks: []HttpLink{"https://github.com/venvoy/venvoy#images"},
	}

	imageBuildFailedIssue = &Issue{
		id: ImageBuildFailedId,
		mdMsg: `
# Image build failed!

The runtime exited non-zero while building the environment image.

## Note for Apptainer/Singularity users:
Dockerfiles are converted to definition files on a best-effort basis; COPY
instructions are dropped. Inspect the generated .def file next to your
Dockerfile.`,
		docLinks: []HttpLink{"https://github.com/venvoy/venvoy#images"},
	}

	detachedRunFailedIssue = &Issue{
		id: DetachedRunFailedId,
		mdMsg: `
# Environment container exited right after starting!

The launch command succeeded, but the container was no longer running moments
later. The container's own logs are attached to the error above — the root
cause is almost always inside the image's entrypoint.

## Things you can try:
- Re-run in the foreground to watch the entrypoint directly:
~~~
$ venvoy run --name <name>
~~~`,
		docLinks: []HttpLink{"https://github.com/venvoy/venvoy#troubleshooting"},
	}

	exportFailedIssue = &Issue{
		id: ExportFailedId,
		mdMsg: `
# Export failed!

venvoy could not write the environment archive.

## Things you can try:
- Check free disk space and write permission on the output directory
- Freeze the environment first so there is a snapshot to export:
~~~
$ venvoy freeze --name <name>
~~~`,
		docLinks: []HttpLink{"https://github.com/venvoy/venvoy#sharing"},
	}

	importFailedIssue = &Issue{
		id: ImportFailedId,
		mdMsg: `
# Import failed!

The archive could not be unpacked into a new environment.

## Common causes:
- The file is not a venvoy export (expected a tarball with environment.yaml inside)
- An environment with the same name already exists`,
		docLinks: []HttpLink{"https://github.com/venvoy/venvoy#sharing"},
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The venvoy config file exists but could not be parsed.

## Things you can try:
- Check the YAML syntax of ~/.venvoy/config.yaml
- Move the file aside to fall back to defaults`,
		docLinks: []HttpLink{"https://github.com/venvoy/venvoy#configuration"},
	}

	sifCacheUnwritableIssue = &Issue{
		id: SifCacheUnwritableId,
		mdMsg: `
# No writable image cache location!

Apptainer/Singularity images are cached as files, and venvoy could not create
a cache directory in your home directory or in temp storage.

## Things you can try:
- Check quota and permissions on $HOME
- Point TMPDIR at a writable scratch filesystem:
~~~
$ export TMPDIR=/scratch/$USER
~~~`,
		docLinks: []HttpLink{"https://github.com/venvoy/venvoy#hpc"},
	}

	issues = map[Id]*Issue{
		noRuntimeFoundIssue.Id():           noRuntimeFoundIssue,
		environmentNotFoundIssue.Id():      environmentNotFoundIssue,
		environmentAlreadyExistsIssue.Id(): environmentAlreadyExistsIssue,
		imagePullFailedIssue.Id():          imagePullFailedIssue,
		imageBuildFailedIssue.Id():         imageBuildFailedIssue,
		detachedRunFailedIssue.Id():        detachedRunFailedIssue,
		exportFailedIssue.Id():             exportFailedIssue,
		importFailedIssue.Id():             importFailedIssue,
		configLoadFailedIssue.Id():         configLoadFailedIssue,
		sifCacheUnwritableIssue.Id():       sifCacheUnwritableIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
