package core

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// Hub defaults. HF_ENDPOINT overrides the endpoint.
const (
	DefaultHubEndpoint = "https://huggingface.co"
	DefaultRevision    = "main"
)

// Hub repositories for each variant.
const (
	RepoSchnell = "black-forest-labs/FLUX.1-schnell"
	RepoDev     = "black-forest-labs/FLUX.1-dev"
	RepoKontext = "black-forest-labs/FLUX.1-Kontext-dev"
)

// approxVariantBytes is the rough on-disk size of a variant's weights.
const approxVariantBytes int64 = 34 * 1000 * 1000 * 1000

// AssetFile is one file of an asset, relative to the repository root.
type AssetFile struct {
	Name string
	// SizeBytes is the expected size (0 if unknown)
	SizeBytes int64
	// SHA256 is verified after download when set
	SHA256 string
}

// AssetRef identifies a set of weights to make available locally.
// Either LocalPath or Repo is set.
type AssetRef struct {
	// Name is shown to the operator
	Name string
	// LocalPath is an existing file or directory; no download happens
	LocalPath string
	// Repo is a Hub repository id (owner/name)
	Repo     string
	Revision string
	// Files to fetch. When empty the repository is listed and files ending in
	// FileSuffix are fetched.
	Files      []AssetFile
	FileSuffix string
	// Single keeps only the first listed file
	Single bool
	// ApproxSizeBytes is used for the disk space precheck when file sizes are unknown
	ApproxSizeBytes int64
}

// IsLocal reports whether the asset is a local path.
func (a AssetRef) IsLocal() bool {
	return a.LocalPath != ""
}

// diffusersFiles is the diffusers layout shared by all FLUX.1 repositories.
var diffusersFiles = []string{
	"model_index.json",
	"scheduler/scheduler_config.json",
	"text_encoder/config.json",
	"text_encoder/model.safetensors",
	"text_encoder_2/config.json",
	"text_encoder_2/model-00001-of-00002.safetensors",
	"text_encoder_2/model-00002-of-00002.safetensors",
	"text_encoder_2/model.safetensors.index.json",
	"tokenizer/merges.txt",
	"tokenizer/special_tokens_map.json",
	"tokenizer/tokenizer_config.json",
	"tokenizer/vocab.json",
	"tokenizer_2/special_tokens_map.json",
	"tokenizer_2/spiece.model",
	"tokenizer_2/tokenizer.json",
	"tokenizer_2/tokenizer_config.json",
	"transformer/config.json",
	"transformer/diffusion_pytorch_model-00001-of-00003.safetensors",
	"transformer/diffusion_pytorch_model-00002-of-00003.safetensors",
	"transformer/diffusion_pytorch_model-00003-of-00003.safetensors",
	"transformer/diffusion_pytorch_model.safetensors.index.json",
	"vae/config.json",
	"vae/diffusion_pytorch_model.safetensors",
}

// HubRepo returns the Hub repository holding the variant's weights.
func (v Variant) HubRepo() string {
	switch v {
	case VariantBase:
		return RepoSchnell
	case VariantGuided:
		return RepoDev
	case VariantImageConditioned:
		return RepoKontext
	default:
		return ""
	}
}

// VariantAsset returns the weights asset of a variant.
func VariantAsset(v Variant) AssetRef {
	files := make([]AssetFile, len(diffusersFiles))
	for i, name := range diffusersFiles {
		files[i] = AssetFile{Name: name}
	}
	return AssetRef{
		Name:            "flux.1 " + v.Token(),
		Repo:            v.HubRepo(),
		Revision:        DefaultRevision,
		Files:           files,
		ApproxSizeBytes: approxVariantBytes,
	}
}

// RemoteLoRAAsset interprets ref as a Hub reference.
//
//   - "owner/name" fetches the first .safetensors file of the repository
//   - "owner/name/path/to/file.safetensors" fetches that file
func RemoteLoRAAsset(ref string) (AssetRef, error) {
	parts := strings.Split(strings.Trim(ref, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return AssetRef{}, ErrInvalidLoRA(ref, "not a local file and not a Hub repository id")
	}

	asset := AssetRef{
		Name:     ref,
		Repo:     parts[0] + "/" + parts[1],
		Revision: DefaultRevision,
		Single:   true,
	}
	if len(parts) > 2 {
		asset.Files = []AssetFile{{Name: strings.Join(parts[2:], "/")}}
	} else {
		asset.FileSuffix = ".safetensors"
	}
	return asset, nil
}

// ResolveHubURL builds the download URL of a repository file:
// <endpoint>/<repo>/resolve/<revision>/<file>.
func ResolveHubURL(endpoint, repo, revision, file string) string {
	if revision == "" {
		revision = DefaultRevision
	}
	segments := strings.Split(file, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("%s/%s/resolve/%s/%s",
		strings.TrimRight(endpoint, "/"), repo, url.PathEscape(revision), strings.Join(segments, "/"))
}

// RepoDirName is the cache directory name of a repository, in the Hub cache style.
func RepoDirName(repo string) string {
	return "models--" + strings.ReplaceAll(repo, "/", "--")
}

// repoInfo is the subset of the Hub model API response used for listing.
type repoInfo struct {
	Siblings []struct {
		RFilename string `json:"rfilename"`
	} `json:"siblings"`
}

// ListRepoFiles lists the files of a repository revision whose names end in suffix.
// The result is sorted.
func ListRepoFiles(ctx context.Context, client *http.Client, endpoint, repo, revision, suffix, credential string) ([]string, error) {
	if revision == "" {
		revision = DefaultRevision
	}
	apiURL := fmt.Sprintf("%s/api/models/%s/revision/%s", strings.TrimRight(endpoint, "/"), repo, url.PathEscape(revision))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list repository files: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPStatusError{URL: apiURL, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	var info repoInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode repository info: %w", err)
	}

	var files []string
	for _, s := range info.Siblings {
		if strings.HasSuffix(s.RFilename, suffix) {
			files = append(files, s.RFilename)
		}
	}
	sort.Strings(files)
	return files, nil
}
