package service

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Category slugs the submission form draws its option sets from.
const (
	CategoryOrganisation = "organisation"
	CategoryHealthTopic  = "health-topic"
	CategoryResourceType = "type"
	CategoryAudience     = "audience"
	CategoryGeography    = "geography"
	CategoryDevice       = "device"
	CategoryLicense      = "license"
	CategoryOther        = "other"
)

// User-facing validation messages. These are surfaced verbatim to the
// submitter and are the localization keys for the form.
const (
	MsgTitleRequired        = "Please enter a title"
	MsgOrganisationRequired = "Please enter at least one organisation"
	MsgDescriptionRequired  = "Please enter a description"
	MsgHealthTopicRequired  = "Please select at least one health topic"
	MsgResourceTypeRequired = "Please select at least one resource type"
	MsgAudienceRequired     = "Please select at least one audience"
	MsgGeographyRequired    = "Please select at least one geographical area"
	MsgDeviceRequired       = "Please select at least one device"
	MsgLicenseRequired      = "Please select a license"
	MsgFileTypeUnsupported  = "File type is not supported"
	MsgURLInvalid           = "This does not appear to be a valid Url"
	MsgFileOrURLRequired    = "Please submit a file and/or a url for this resource"
	MsgSearchQueryRequired  = "Please enter something to search for"
)

// SubmissionFile is the metadata of an uploaded file as declared by the
// client. Content is handled separately by the storage layer.
type SubmissionFile struct {
	Name        string
	ContentType string
	Size        int64
}

// ResourceSubmission is the typed counterpart of the submission form.
// Multi-select groups carry tag slugs from the corresponding category.
type ResourceSubmission struct {
	Title         string
	Organisations string // comma separated names, at least one
	Description   string
	Image         *SubmissionFile
	File          *SubmissionFile
	URL           string
	HealthTopics  []string
	ResourceTypes []string
	Audiences     []string
	Geographies   []string
	Devices       []string
	License       string
	OtherTags     string // optional, comma separated names
}

// ValidatedSubmission is a normalized submission: free-text lists split
// and trimmed, selections verified against the registry.
type ValidatedSubmission struct {
	Title             string
	Description       string
	OrganisationNames []string
	OtherTagNames     []string
	// TagSlugs is every selected registry slug across the multi-select
	// groups plus the license, de-duplicated.
	TagSlugs []string
	URL      string
}

// ValidationResult collects field-level errors plus at most one form-level
// error. It implements error so services can return it directly.
type ValidationResult struct {
	Fields map[string]string `json:"fields,omitempty"`
	Form   string            `json:"form,omitempty"`
}

func (r *ValidationResult) addField(field, message string) {
	if r.Fields == nil {
		r.Fields = map[string]string{}
	}
	if _, taken := r.Fields[field]; !taken {
		r.Fields[field] = message
	}
}

func (r *ValidationResult) ok() bool {
	return len(r.Fields) == 0 && r.Form == ""
}

func (r *ValidationResult) Error() string {
	var parts []string
	fields := make([]string, 0, len(r.Fields))
	for f := range r.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, r.Fields[f]))
	}
	if r.Form != "" {
		parts = append(parts, r.Form)
	}
	return strings.Join(parts, "; ")
}

// UploadPolicy is supplied by the hosting environment: an allow-list of
// top-level content types and a maximum file size in bytes.
type UploadPolicy struct {
	AllowedTypes []string
	MaxBytes     int64
}

// TagOptionSource supplies the valid option slugs for a form group.
type TagOptionSource interface {
	TagSlugsByCategory(ctx context.Context, categorySlug string) ([]string, error)
}

// SubmissionValidator enforces the submission rules. It has no side
// effects; nothing is persisted on either outcome.
type SubmissionValidator struct {
	registry TagOptionSource
	policy   UploadPolicy
}

func NewSubmissionValidator(registry TagOptionSource, policy UploadPolicy) *SubmissionValidator {
	return &SubmissionValidator{registry: registry, policy: policy}
}

// Validate checks every field independently, then the file-or-url rule.
// The cross-field error is raised only when per-field validation is clean,
// so it never masks a field error.
func (v *SubmissionValidator) Validate(ctx context.Context, sub ResourceSubmission) (*ValidatedSubmission, error) {
	result := &ValidationResult{}
	out := &ValidatedSubmission{}

	out.Title = strings.TrimSpace(sub.Title)
	if out.Title == "" {
		result.addField("title", MsgTitleRequired)
	}

	out.Description = strings.TrimSpace(sub.Description)
	if out.Description == "" {
		result.addField("description", MsgDescriptionRequired)
	}

	out.OrganisationNames = splitCommaList(sub.Organisations)
	if len(out.OrganisationNames) == 0 {
		result.addField("organisations", MsgOrganisationRequired)
	}

	out.OtherTagNames = splitCommaList(sub.OtherTags)

	seen := map[string]bool{}
	v.validateGroup(ctx, result, out, seen, "health_topic", CategoryHealthTopic, sub.HealthTopics, MsgHealthTopicRequired)
	v.validateGroup(ctx, result, out, seen, "resource_type", CategoryResourceType, sub.ResourceTypes, MsgResourceTypeRequired)
	v.validateGroup(ctx, result, out, seen, "audience", CategoryAudience, sub.Audiences, MsgAudienceRequired)
	v.validateGroup(ctx, result, out, seen, "geography", CategoryGeography, sub.Geographies, MsgGeographyRequired)
	v.validateGroup(ctx, result, out, seen, "device", CategoryDevice, sub.Devices, MsgDeviceRequired)

	if sub.License == "" {
		result.addField("license", MsgLicenseRequired)
	} else {
		v.validateGroup(ctx, result, out, seen, "license", CategoryLicense, []string{sub.License}, MsgLicenseRequired)
	}

	v.validateFile(result, sub.File)

	out.URL = strings.TrimSpace(sub.URL)
	if out.URL != "" && !isValidURL(out.URL) {
		result.addField("url", MsgURLInvalid)
	}

	// The file/url rule only fires once every field is individually clean.
	if result.ok() && sub.File == nil && out.URL == "" {
		result.Form = MsgFileOrURLRequired
	}

	if !result.ok() {
		return nil, result
	}
	return out, nil
}

func (v *SubmissionValidator) validateGroup(ctx context.Context, result *ValidationResult, out *ValidatedSubmission, seen map[string]bool, field, categorySlug string, selected []string, requiredMsg string) {
	if len(selected) == 0 {
		result.addField(field, requiredMsg)
		return
	}

	options, err := v.registry.TagSlugsByCategory(ctx, categorySlug)
	if err != nil {
		result.addField(field, fmt.Sprintf("Could not load options for %s", field))
		return
	}

	valid := make(map[string]bool, len(options))
	for _, o := range options {
		valid[o] = true
	}

	for _, s := range selected {
		if !valid[s] {
			result.addField(field, fmt.Sprintf("Select a valid choice: %s is not one of the available choices", s))
			return
		}
	}

	for _, s := range selected {
		if !seen[s] {
			seen[s] = true
			out.TagSlugs = append(out.TagSlugs, s)
		}
	}
}

// validateFile applies an extension check, the content-type allow-list and
// the size limit, in that order. Malformed metadata fails validation
// rather than passing silently.
func (v *SubmissionValidator) validateFile(result *ValidationResult, file *SubmissionFile) {
	if file == nil {
		return
	}

	if len(strings.Split(file.Name, ".")) == 1 {
		result.addField("file", MsgFileTypeUnsupported)
		return
	}

	topType, _, found := strings.Cut(file.ContentType, "/")
	if !found || !contains(v.policy.AllowedTypes, topType) {
		result.addField("file", MsgFileTypeUnsupported)
		return
	}

	if file.Size > v.policy.MaxBytes {
		result.addField("file", fmt.Sprintf(
			"Please keep filesize under %s. Current filesize %s",
			formatByteSize(v.policy.MaxBytes), formatByteSize(file.Size)))
	}
}

// ValidateFile applies the upload policy to a single file, for attachments
// added outside the submission form.
func (v *SubmissionValidator) ValidateFile(file *SubmissionFile) error {
	result := &ValidationResult{}
	v.validateFile(result, file)
	if !result.ok() {
		return result
	}
	return nil
}

// ValidateURL checks one URL the way the form's url field does.
func (v *SubmissionValidator) ValidateURL(raw string) error {
	if !isValidURL(strings.TrimSpace(raw)) {
		result := &ValidationResult{}
		result.addField("url", MsgURLInvalid)
		return result
	}
	return nil
}

func isValidURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "http", "https", "ftp", "ftps":
	default:
		return false
	}
	return u.Host != ""
}

func splitCommaList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// formatByteSize renders a size the way the form reports limits: whole
// bytes below 1 KB, otherwise one decimal in the largest fitting unit.
func formatByteSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d bytes", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
