package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docindex/internal/core/domain"
	"github.com/custodia-labs/docindex/internal/core/ports/driving"
	"github.com/custodia-labs/docindex/internal/normalisers"
)

var documentCmd = &cobra.Command{
	Use:         "document",
	Aliases:     []string{"doc"},
	Short:       "Manage indexed documents",
	Long:        `Store, find, list, edit and delete documents in the index.`,
	Annotations: backendCommand(),
}

// filterFlags select documents for the commands that take a filter.
type filterFlags struct {
	id         string
	title      string
	content    string
	category   string
	sourceType string
	sourceRef  string
	tags       []string
}

func addFilterFlags(cmd *cobra.Command) *filterFlags {
	f := &filterFlags{}
	cmd.Flags().StringVar(&f.id, "id", "", "Match the exact document ID")
	cmd.Flags().StringVar(&f.title, "match-title", "", "Match a title substring")
	cmd.Flags().StringVar(&f.content, "match-content", "", "Match a content substring")
	cmd.Flags().StringVar(&f.category, "match-category", "", "Match the exact category")
	cmd.Flags().StringVar(&f.sourceType, "match-source-type", "", "Match the exact source type")
	cmd.Flags().StringVar(&f.sourceRef, "match-source-ref", "", "Match the exact source reference")
	cmd.Flags().StringSliceVar(&f.tags, "match-tag", nil, "Match documents carrying any of these tags")
	return f
}

func (f *filterFlags) filter() domain.Filter {
	return domain.Filter{
		DocumentID: f.id,
		Title:      f.title,
		Content:    f.content,
		Category:   f.category,
		SourceType: domain.SourceType(f.sourceType),
		SourceRef:  f.sourceRef,
		Tags:       f.tags,
	}
}

// contentFlags read document text from a flag, a file or stdin.
type contentFlags struct {
	text string
	file string
}

func addContentFlags(cmd *cobra.Command, usage string) *contentFlags {
	c := &contentFlags{}
	cmd.Flags().StringVar(&c.text, "content", "", usage)
	cmd.Flags().StringVar(&c.file, "file", "", "Read content from a file (html, markdown, docx and eml are converted to text), or - for stdin")
	return c
}

// read returns the content to write. Files are normalised to plain text by
// extension, which also yields a title for store.
func (c *contentFlags) read(cmd *cobra.Command) (normalisers.Result, error) {
	switch {
	case c.file == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return normalisers.Result{}, fmt.Errorf("reading stdin: %w", err)
		}
		return normalisers.PlainText(c.file, data)
	case c.file != "":
		data, err := os.ReadFile(c.file)
		if err != nil {
			return normalisers.Result{}, fmt.Errorf("reading %s: %w", c.file, err)
		}
		return normalisers.Normalise(c.file, data)
	default:
		return normalisers.Result{Content: c.text}, nil
	}
}

var (
	docCollection string

	storeTitle    string
	storeCategory string
	storeTags     []string
	storeContent  *contentFlags

	findLimit  int
	findFilter *filterFlags

	listLimit  int
	listFilter *filterFlags

	updateTitle    string
	updateCategory string
	updateTags     []string
	updateContent  *contentFlags
	updateFilter   *filterFlags

	appendContent *contentFlags
	appendFilter  *filterFlags

	tagFilter   *filterFlags
	untagFilter *filterFlags

	metaCategory  string
	metaSourceRef string
	metaTags      []string
	metaFilter    *filterFlags

	deleteFilter *filterFlags
)

var documentStoreCmd = &cobra.Command{
	Use:   "store",
	Short: "Store a new document",
	Args:  cobra.NoArgs,
	RunE:  runDocumentStore,
}

var documentFindCmd = &cobra.Command{
	Use:   "find [query]",
	Short: "Find documents by meaning",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDocumentFind,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents matching a filter",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

var documentUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Replace the content of a composed document",
	Long: `Replace the content of the single composed document matching the filter.

Category and tags are kept unless --category or --tags is given.`,
	Args: cobra.NoArgs,
	RunE: runDocumentUpdate,
}

var documentAppendCmd = &cobra.Command{
	Use:   "append",
	Short: "Append text to a composed document",
	Args:  cobra.NoArgs,
	RunE:  runDocumentAppend,
}

var documentTagCmd = &cobra.Command{
	Use:   "tag [tags...]",
	Short: "Add tags to matching documents",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDocumentTag,
}

var documentUntagCmd = &cobra.Command{
	Use:   "untag [tags...]",
	Short: "Remove tags from matching documents",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDocumentUntag,
}

var documentSetMetadataCmd = &cobra.Command{
	Use:   "set-metadata",
	Short: "Change category, source reference or tags of matching documents",
	Long: `Change metadata on every document matching the filter.

Only the flags given are changed. The source type cannot be changed.
Pass --tags "" to clear all tags.`,
	Args: cobra.NoArgs,
	RunE: runDocumentSetMetadata,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a composed document",
	Args:  cobra.NoArgs,
	RunE:  runDocumentDelete,
}

func init() {
	documentCmd.PersistentFlags().StringVarP(&docCollection, "collection", "c", "", "Collection (default from config)")

	documentStoreCmd.Flags().StringVarP(&storeTitle, "title", "t", "", "Document title")
	documentStoreCmd.Flags().StringVar(&storeCategory, "category", "", "Category")
	documentStoreCmd.Flags().StringSliceVar(&storeTags, "tags", nil, "Comma-separated tags")
	storeContent = addContentFlags(documentStoreCmd, "Document content")

	documentFindCmd.Flags().IntVarP(&findLimit, "limit", "n", 0, "Maximum chunk hits before grouping into documents (default from config)")
	findFilter = addFilterFlags(documentFindCmd)

	documentListCmd.Flags().IntVarP(&listLimit, "limit", "n", 0, "Maximum documents (0 = all)")
	listFilter = addFilterFlags(documentListCmd)

	documentUpdateCmd.Flags().StringVar(&updateTitle, "title", "", "New title")
	documentUpdateCmd.Flags().StringVar(&updateCategory, "category", "", "New category")
	documentUpdateCmd.Flags().StringSliceVar(&updateTags, "tags", nil, "Replacement tag set")
	updateContent = addContentFlags(documentUpdateCmd, "New content")
	updateFilter = addFilterFlags(documentUpdateCmd)

	appendContent = addContentFlags(documentAppendCmd, "Text to append")
	appendFilter = addFilterFlags(documentAppendCmd)

	tagFilter = addFilterFlags(documentTagCmd)
	untagFilter = addFilterFlags(documentUntagCmd)

	documentSetMetadataCmd.Flags().StringVar(&metaCategory, "category", "", "New category")
	documentSetMetadataCmd.Flags().StringVar(&metaSourceRef, "source-ref", "", "New source reference")
	documentSetMetadataCmd.Flags().StringSliceVar(&metaTags, "tags", nil, "Replacement tag set")
	metaFilter = addFilterFlags(documentSetMetadataCmd)

	deleteFilter = addFilterFlags(documentDeleteCmd)

	documentCmd.AddCommand(
		documentStoreCmd,
		documentFindCmd,
		documentListCmd,
		documentGetCmd,
		documentUpdateCmd,
		documentAppendCmd,
		documentTagCmd,
		documentUntagCmd,
		documentSetMetadataCmd,
		documentDeleteCmd,
	)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentStore(cmd *cobra.Command, _ []string) error {
	if err := requireDocuments(); err != nil {
		return err
	}
	content, err := storeContent.read(cmd)
	if err != nil {
		return err
	}
	title := storeTitle
	if title == "" {
		title = content.Title
	}

	doc, err := documentService.Store(cmd.Context(), driving.StoreRequest{
		Collection: docCollection,
		Title:      title,
		Content:    content.Content,
		Category:   storeCategory,
		Tags:       storeTags,
	})
	if err != nil {
		return fmt.Errorf("failed to store document: %w", err)
	}

	cmd.Printf("Stored document %s (%d chunks)\n", doc.ID, doc.ChunkCount)
	return nil
}

func runDocumentFind(cmd *cobra.Command, args []string) error {
	if err := requireDocuments(); err != nil {
		return err
	}
	query := strings.Join(args, " ")

	results, err := documentService.Find(cmd.Context(), driving.FindRequest{
		Collection: docCollection,
		Query:      query,
		Filter:     findFilter.filter(),
		Limit:      findLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to find documents: %w", err)
	}

	if len(results) == 0 {
		cmd.Printf("No results found for: %s\n", query)
		return nil
	}
	cmd.Printf("Found %d documents:\n\n", len(results))
	for i := range results {
		printDocument(cmd, results[i].Document, results[i].Score)
	}
	return nil
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if err := requireDocuments(); err != nil {
		return err
	}

	results, err := documentService.List(cmd.Context(), driving.ListRequest{
		Collection: docCollection,
		Filter:     listFilter.filter(),
		Limit:      listLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(results) == 0 {
		cmd.Println("No documents found")
		return nil
	}
	for i := range results {
		printDocument(cmd, results[i].Document, 0)
	}
	cmd.Printf("Total: %d documents\n", len(results))
	return nil
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	if err := requireDocuments(); err != nil {
		return err
	}

	doc, err := documentService.Get(cmd.Context(), docCollection, args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	printDocument(cmd, doc, 0)
	if doc.Content != "" {
		cmd.Println(doc.Content)
	}
	return nil
}

func runDocumentUpdate(cmd *cobra.Command, _ []string) error {
	if err := requireDocuments(); err != nil {
		return err
	}
	content, err := updateContent.read(cmd)
	if err != nil {
		return err
	}

	var patch driving.MetadataPatch
	if cmd.Flags().Changed("category") {
		patch.Category = &updateCategory
	}
	if cmd.Flags().Changed("tags") {
		patch.Tags = append([]string{}, updateTags...)
	}

	out, err := documentService.Update(cmd.Context(), driving.UpdateRequest{
		Collection: docCollection,
		Filter:     updateFilter.filter(),
		Content:    content.Content,
		Title:      updateTitle,
		Patch:      patch,
	})
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	printOutcome(cmd, out)
	return nil
}

func runDocumentAppend(cmd *cobra.Command, _ []string) error {
	if err := requireDocuments(); err != nil {
		return err
	}
	content, err := appendContent.read(cmd)
	if err != nil {
		return err
	}

	out, err := documentService.Append(cmd.Context(), driving.AppendRequest{
		Collection: docCollection,
		Filter:     appendFilter.filter(),
		Content:    content.Content,
	})
	if err != nil {
		return fmt.Errorf("failed to append to document: %w", err)
	}
	printOutcome(cmd, out)
	return nil
}

func runDocumentTag(cmd *cobra.Command, args []string) error {
	if err := requireDocuments(); err != nil {
		return err
	}

	res, err := documentService.AddTags(cmd.Context(), driving.TagsRequest{
		Collection: docCollection,
		Filter:     tagFilter.filter(),
		Tags:       args,
	})
	if err != nil {
		return fmt.Errorf("failed to add tags: %w", err)
	}
	printMutation(cmd, res)
	return nil
}

func runDocumentUntag(cmd *cobra.Command, args []string) error {
	if err := requireDocuments(); err != nil {
		return err
	}

	res, err := documentService.RemoveTags(cmd.Context(), driving.TagsRequest{
		Collection: docCollection,
		Filter:     untagFilter.filter(),
		Tags:       args,
	})
	if err != nil {
		return fmt.Errorf("failed to remove tags: %w", err)
	}
	printMutation(cmd, res)
	return nil
}

func runDocumentSetMetadata(cmd *cobra.Command, _ []string) error {
	if err := requireDocuments(); err != nil {
		return err
	}

	var patch driving.MetadataPatch
	if cmd.Flags().Changed("category") {
		patch.Category = &metaCategory
	}
	if cmd.Flags().Changed("source-ref") {
		patch.SourceRef = &metaSourceRef
	}
	if cmd.Flags().Changed("tags") {
		patch.Tags = append([]string{}, metaTags...)
	}
	if patch.IsEmpty() {
		return fmt.Errorf("nothing to change: pass --category, --source-ref or --tags")
	}

	res, err := documentService.SetMetadata(cmd.Context(), driving.MetadataRequest{
		Collection: docCollection,
		Filter:     metaFilter.filter(),
		Patch:      patch,
	})
	if err != nil {
		return fmt.Errorf("failed to set metadata: %w", err)
	}
	printMutation(cmd, res)
	return nil
}

func runDocumentDelete(cmd *cobra.Command, _ []string) error {
	if err := requireDocuments(); err != nil {
		return err
	}

	out, err := documentService.Delete(cmd.Context(), driving.DeleteRequest{
		Collection: docCollection,
		Filter:     deleteFilter.filter(),
	})
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	printOutcome(cmd, out)
	return nil
}

func printDocument(cmd *cobra.Command, doc domain.Document, score float64) {
	if score > 0 {
		cmd.Printf("  %s  (score %.3f)\n", doc.ID, score)
	} else {
		cmd.Printf("  %s\n", doc.ID)
	}
	cmd.Printf("    Title:    %s\n", doc.Title)
	if doc.Abstract != "" {
		cmd.Printf("    Abstract: %s\n", doc.Abstract)
	}
	cmd.Printf("    Source:   %s", doc.Metadata.SourceType)
	if doc.Metadata.SourceRef != "" {
		cmd.Printf(" (%s)", doc.Metadata.SourceRef)
	}
	cmd.Println()
	if doc.Metadata.Category != "" {
		cmd.Printf("    Category: %s\n", doc.Metadata.Category)
	}
	if len(doc.Metadata.Tags) > 0 {
		cmd.Printf("    Tags:     %s\n", strings.Join(doc.Metadata.Tags, ", "))
	}
	if !doc.Metadata.CreatedAt.IsZero() {
		cmd.Printf("    Created:  %s\n", doc.Metadata.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	cmd.Printf("    Chunks:   %d\n", doc.ChunkCount)
	cmd.Println()
}

func printMutation(cmd *cobra.Command, res domain.MutationResult) {
	cmd.Println(res.Message)
	for i := range res.Documents {
		cmd.Printf("  %s  %s\n", res.Documents[i].ID, res.Documents[i].Title)
	}
}

func printOutcome(cmd *cobra.Command, out domain.Outcome) {
	if res, ok := out.Result(); ok {
		printMutation(cmd, res)
		return
	}
	cmd.Println(out.Message())
	cmd.Println()
	for _, doc := range out.Candidates() {
		printDocument(cmd, doc, 0)
	}
}
