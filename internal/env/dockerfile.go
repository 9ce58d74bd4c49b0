// SPDX-License-Identifier: MPL-2.0

package env

import (
	"fmt"
	"strings"
	"text/template"
	"time"
)

// pythonDockerfileTemplate builds the Python environment image: miniconda
// with mamba for fast solves, uv for fast pip installs, a host-UID user so
// files created in /workspace stay owned by the invoking user, and the
// package monitor wired into the interactive shell.
const pythonDockerfileTemplate = `# venvoy environment: {{.Name}}
# Python version: {{.Version}}
# Generated on: {{.Generated}}

FROM {{.BaseImage}}

ENV PYTHONUNBUFFERED=1
ENV PYTHONDONTWRITEBYTECODE=1
ENV PIP_NO_CACHE_DIR=1
ENV PIP_DISABLE_PIP_VERSION_CHECK=1

RUN apt-get update && apt-get install -y \
    build-essential \
    curl \
    git \
    wget \
    vim \
    && rm -rf /var/lib/apt/lists/*

RUN wget https://repo.anaconda.com/miniconda/Miniconda3-latest-Linux-x86_64.sh -O /tmp/miniconda.sh && \
    bash /tmp/miniconda.sh -b -p /opt/conda && \
    rm /tmp/miniconda.sh

ENV PATH="/opt/conda/bin:$PATH"

RUN conda init bash

RUN conda install -n base -c conda-forge mamba -y

RUN mamba create -n venvoy python={{.Version}} -c conda-forge -y

RUN pip install --no-cache-dir uv

ENV CONDA_DEFAULT_ENV=venvoy
ENV CONDA_PREFIX=/opt/conda/envs/venvoy
ENV PATH="/opt/conda/envs/venvoy/bin:$PATH"

WORKDIR /workspace

COPY requirements*.txt ./

RUN if [ -s requirements.txt ]; then \
        (uv pip install -r requirements.txt || pip install -r requirements.txt); \
    fi
RUN if [ -s requirements-dev.txt ]; then \
        (uv pip install -r requirements-dev.txt || pip install -r requirements-dev.txt); \
    fi

ARG USER_ID=1000
ARG GROUP_ID=1000
RUN groupadd -g $GROUP_ID venvoy && \
    useradd -u $USER_ID -g $GROUP_ID -m -s /bin/bash venvoy

USER venvoy

RUN echo 'conda activate venvoy' >> ~/.bashrc && \
    echo 'echo "Welcome to your venvoy environment"' >> ~/.bashrc && \
    echo 'echo "Workspace: $(pwd)"' >> ~/.bashrc && \
    echo 'echo "Host home mounted at /home/venvoy/host-home"' >> ~/.bashrc

CMD ["/bin/bash"]
`

// rDockerfileTemplate builds the R environment image on the rocker
// versioned base.
const rDockerfileTemplate = `# venvoy environment: {{.Name}}
# R version: {{.Version}}
# Generated on: {{.Generated}}

FROM {{.BaseImage}}

RUN apt-get update && apt-get install -y \
    build-essential \
    curl \
    git \
    libcurl4-openssl-dev \
    libssl-dev \
    libxml2-dev \
    && rm -rf /var/lib/apt/lists/*

WORKDIR /workspace

ARG USER_ID=1000
ARG GROUP_ID=1000
RUN groupadd -g $GROUP_ID venvoy && \
    useradd -u $USER_ID -g $GROUP_ID -m -s /bin/bash venvoy

USER venvoy

CMD ["R"]
`

var dockerfileTemplates = map[Kind]*template.Template{
	KindPython: template.Must(template.New("python").Parse(pythonDockerfileTemplate)),
	KindR:      template.Must(template.New("r").Parse(rDockerfileTemplate)),
}

// BaseImage returns the upstream base image for a kind and version when the
// user has not overridden it: official slim Python images and rocker R
// images, both multi-arch.
func BaseImage(kind Kind, version string) string {
	switch kind {
	case KindR:
		return "rocker/r-ver:" + version
	default:
		return "python:" + version + "-slim"
	}
}

// GenerateDockerfile renders the Dockerfile for an environment. baseImage
// overrides the default base when non-empty.
func GenerateDockerfile(meta *Metadata, baseImage string, now time.Time) (string, error) {
	tmpl, ok := dockerfileTemplates[meta.Kind]
	if !ok {
		return "", &InvalidKindError{Value: meta.Kind}
	}
	if baseImage == "" {
		baseImage = BaseImage(meta.Kind, meta.Version)
	}
	var buf strings.Builder
	err := tmpl.Execute(&buf, struct {
		Name      string
		Version   string
		BaseImage string
		Generated string
	}{
		Name:      string(meta.Name),
		Version:   meta.Version,
		BaseImage: baseImage,
		Generated: now.Format(time.RFC3339),
	})
	if err != nil {
		return "", fmt.Errorf("failed to render dockerfile: %w", err)
	}
	return buf.String(), nil
}
