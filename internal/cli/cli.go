// Package cli provides the command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/treesnap/treesnap/internal/config"
	"github.com/treesnap/treesnap/internal/extract"
	"github.com/treesnap/treesnap/internal/render"
	"github.com/treesnap/treesnap/internal/services/clipboard"
	"github.com/treesnap/treesnap/internal/tokenizer"
	"github.com/treesnap/treesnap/internal/utils"
	"github.com/treesnap/treesnap/internal/walk"
)

const (
	exclusionFlagName      = "e"
	noGitignoreFlagName    = "no-gitignore"
	noIgnoreFlagName       = "no-ignore"
	includeGitFlagName     = "git"
	followSymlinksFlagName = "follow-symlinks"
	summaryFlagName        = "summary"
	tokensFlagName         = "tokens"
	modelFlagName          = "model"
	copyFlagName           = "copy"
	includeBinaryFlagName  = "include-binary"
	encodingFlagName       = "encoding"
	errorsFlagName         = "errors"
	versionFlagName        = "version"
	configFileFlagName     = "config"
	forceFlagName          = "force"
	globalFlagName         = "global"

	versionTemplate      = "treesnap version: %s\n"
	defaultPath          = "."
	rootUse              = "treesnap"
	rootShortDescription = "treesnap command line interface"
	rootLongDescription  = `treesnap renders directory trees and extracts file contents.
The tree command draws a box-glyph tree of one or more paths. The content
command emits the text of every selected file as a delimited bundle. Both
commands honor .gitignore and .ignore files and share the same traversal.`
	versionFlagDescription  = "display application version"
	treeUse                 = "tree [paths...]"
	contentUse              = "content [paths...]"
	configUse               = "config"
	configInitUse           = "init"
	treeAlias               = "t"
	contentAlias            = "c"
	treeShortDescription    = "display directory tree (" + treeAlias + ")"
	contentShortDescription = "show file contents (" + contentAlias + ")"
	configShortDescription  = "manage treesnap configuration"
	initShortDescription    = "write a default configuration file"

	treeLongDescription = `List directories and files for one or more paths as a box-glyph tree.
Directories sort before files and siblings sort case-insensitively.`
	treeUsageExample = `  # Render the current project
  treesnap tree .

  # Exclude the vendor directory and follow symlinks
  treesnap tree -e vendor --follow-symlinks .`

	contentLongDescription = `Emit the content of every selected file as a delimited bundle.
Binary files are skipped unless --include-binary is set. Use --encoding to
decode files in a non-UTF-8 encoding and --errors to choose whether decode
failures abort the run or leave a marker record.`
	contentUsageExample = `  # Bundle the project for sharing
  treesnap content .

  # Copy the bundle to the clipboard with a token count
  treesnap content --copy --tokens .`

	exclusionFlagDescription        = "exclude path pattern"
	disableGitignoreFlagDescription = "do not use .gitignore"
	disableIgnoreFlagDescription    = "do not use .ignore"
	includeGitFlagDescription       = "include git directory"
	followSymlinksFlagDescription   = "resolve symbolic links during traversal"
	summaryFlagDescription          = "print a summary of resulting files"
	tokensFlagDescription           = "include token counts in the summary"
	modelFlagDescription            = "tokenizer model to use for token counting"
	copyFlagDescription             = "copy output to the system clipboard"
	includeBinaryFlagDescription    = "decode binary files as text instead of skipping them"
	encodingFlagDescription         = "text encoding used to decode file contents"
	errorsFlagDescription           = "decode failure policy: raise or ignore"
	configFileFlagDescription       = "path to a configuration file"
	forceFlagDescription            = "overwrite an existing configuration file"
	globalFlagDescription           = "write the global configuration file"
	defaultTokenizerModelName       = "gpt-4o"

	warningSkipPathFormat       = "skipping %s: %v"
	summaryLineFormat           = "Summary: %d files, %s"
	summaryTokensFormat         = ", %d tokens (model: %s)"
	workingDirectoryErrorFormat = "unable to determine working directory: %w"
	// errorAbsolutePathFormat reports failure to resolve an absolute path.
	errorAbsolutePathFormat = "abs failed for '%s': %w"
	// errorPathMissingFormat reports a missing path.
	errorPathMissingFormat = "path '%s' does not exist"
	// errorStatFormat reports failure to retrieve file statistics.
	errorStatFormat = "stat failed for '%s': %w"
	// errorNoValidPaths indicates that all paths are invalid.
	errorNoValidPaths = "no valid paths"
)

// Execute runs the treesnap application.
func Execute(loggerInstance *zap.Logger) error {
	rootCommand := createRootCommand(loggerInstance)
	arguments := normalizeBooleanFlagArguments(rootCommand, os.Args[1:])
	rootCommand.SetArgs(normalizeCopyFlagArguments(arguments))
	return rootCommand.Execute()
}

// createRootCommand builds the root Cobra command.
func createRootCommand(loggerInstance *zap.Logger) *cobra.Command {
	var showVersion bool
	var configFilePath string

	rootCommand := &cobra.Command{
		Use:          rootUse,
		Short:        rootShortDescription,
		Long:         rootLongDescription,
		SilenceUsage: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
		PersistentPreRun: func(command *cobra.Command, arguments []string) {
			if showVersion {
				fmt.Printf(versionTemplate, utils.GetApplicationVersion())
				os.Exit(0)
			}
		},
	}
	rootCommand.PersistentFlags().BoolVar(&showVersion, versionFlagName, false, versionFlagDescription)
	rootCommand.PersistentFlags().StringVar(&configFilePath, configFileFlagName, "", configFileFlagDescription)
	rootCommand.AddCommand(
		createTreeCommand(loggerInstance, &configFilePath),
		createContentCommand(loggerInstance, &configFilePath),
		createConfigCommand(),
	)
	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand
}

// streamFlags stores the flag targets shared by the tree and content commands.
type streamFlags struct {
	exclusionPatterns []string
	disableGitignore  bool
	disableIgnoreFile bool
	includeGit        bool
	followSymlinks    bool
	summaryEnabled    bool
	tokensEnabled     bool
	tokenizerModel    string
	copyToClipboard   bool
	includeBinary     bool
	encodingName      string
	errorsPolicy      string
}

// streamSettings holds the effective values after merging configuration
// defaults with explicitly set flags.
type streamSettings struct {
	exclusionPatterns []string
	useGitignore      bool
	useIgnoreFile     bool
	includeGit        bool
	followSymlinks    bool
	summaryEnabled    bool
	tokensEnabled     bool
	tokenizerModel    string
	copyToClipboard   bool
	includeBinary     bool
	encodingName      string
	errorsPolicy      string
}

// addStreamFlags registers the flags shared by the tree and content commands.
func addStreamFlags(command *cobra.Command, flags *streamFlags) {
	command.Flags().StringArrayVarP(&flags.exclusionPatterns, exclusionFlagName, exclusionFlagName, nil, exclusionFlagDescription)
	command.Flags().BoolVar(&flags.disableGitignore, noGitignoreFlagName, false, disableGitignoreFlagDescription)
	command.Flags().BoolVar(&flags.disableIgnoreFile, noIgnoreFlagName, false, disableIgnoreFlagDescription)
	command.Flags().BoolVar(&flags.includeGit, includeGitFlagName, false, includeGitFlagDescription)
	command.Flags().BoolVar(&flags.followSymlinks, followSymlinksFlagName, false, followSymlinksFlagDescription)
	registerBooleanFlag(command.Flags(), &flags.summaryEnabled, summaryFlagName, true, summaryFlagDescription)
	command.Flags().BoolVar(&flags.tokensEnabled, tokensFlagName, false, tokensFlagDescription)
	command.Flags().StringVar(&flags.tokenizerModel, modelFlagName, defaultTokenizerModelName, modelFlagDescription)
	registerCopyFlag(command.Flags(), &flags.copyToClipboard)
}

// resolveStreamSettings merges configuration defaults into flags that were
// not explicitly set on the command line.
func resolveStreamSettings(command *cobra.Command, flags streamFlags, configured config.StreamCommandConfiguration) streamSettings {
	settings := streamSettings{
		exclusionPatterns: append(append([]string{}, configured.Paths.Exclude...), flags.exclusionPatterns...),
		useGitignore:      !flags.disableGitignore,
		useIgnoreFile:     !flags.disableIgnoreFile,
		includeGit:        flags.includeGit,
		followSymlinks:    flags.followSymlinks,
		summaryEnabled:    flags.summaryEnabled,
		tokensEnabled:     flags.tokensEnabled,
		tokenizerModel:    flags.tokenizerModel,
		copyToClipboard:   flags.copyToClipboard,
		includeBinary:     flags.includeBinary,
		encodingName:      flags.encodingName,
		errorsPolicy:      flags.errorsPolicy,
	}
	changed := command.Flags().Changed

	if !changed(noGitignoreFlagName) && configured.Paths.UseGitignore != nil {
		settings.useGitignore = *configured.Paths.UseGitignore
	}
	if !changed(noIgnoreFlagName) && configured.Paths.UseIgnoreFile != nil {
		settings.useIgnoreFile = *configured.Paths.UseIgnoreFile
	}
	if !changed(includeGitFlagName) && configured.Paths.IncludeGit != nil {
		settings.includeGit = *configured.Paths.IncludeGit
	}
	if !changed(followSymlinksFlagName) && configured.FollowSymlinks != nil {
		settings.followSymlinks = *configured.FollowSymlinks
	}
	if !changed(summaryFlagName) && configured.Summary != nil {
		settings.summaryEnabled = *configured.Summary
	}
	if !changed(tokensFlagName) && configured.Tokens.Enabled != nil {
		settings.tokensEnabled = *configured.Tokens.Enabled
	}
	if !changed(modelFlagName) && configured.Tokens.Model != "" {
		settings.tokenizerModel = configured.Tokens.Model
	}
	if !changed(copyFlagName) && configured.Clipboard != nil {
		settings.copyToClipboard = *configured.Clipboard
	}
	if !changed(includeBinaryFlagName) && configured.IncludeBinary != nil {
		settings.includeBinary = *configured.IncludeBinary
	}
	if !changed(encodingFlagName) && configured.Encoding != "" {
		settings.encodingName = configured.Encoding
	}
	if !changed(errorsFlagName) && configured.Errors != "" {
		settings.errorsPolicy = configured.Errors
	}
	return settings
}

// createTreeCommand returns the tree subcommand.
func createTreeCommand(loggerInstance *zap.Logger, configFilePath *string) *cobra.Command {
	var flags streamFlags

	treeCommand := &cobra.Command{
		Use:     treeUse,
		Aliases: []string{treeAlias},
		Short:   treeShortDescription,
		Long:    treeLongDescription,
		Example: treeUsageExample,
		Args:    cobra.ArbitraryArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			if len(arguments) == 0 {
				arguments = []string{defaultPath}
			}
			configuration, configurationError := loadConfiguration(*configFilePath)
			if configurationError != nil {
				return configurationError
			}
			settings := resolveStreamSettings(command, flags, configuration.Tree)
			return runTree(loggerInstance, arguments, settings)
		},
	}

	addStreamFlags(treeCommand, &flags)
	return treeCommand
}

// createContentCommand returns the content subcommand.
func createContentCommand(loggerInstance *zap.Logger, configFilePath *string) *cobra.Command {
	var flags streamFlags

	contentCommand := &cobra.Command{
		Use:     contentUse,
		Aliases: []string{contentAlias},
		Short:   contentShortDescription,
		Long:    contentLongDescription,
		Example: contentUsageExample,
		Args:    cobra.ArbitraryArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			if len(arguments) == 0 {
				arguments = []string{defaultPath}
			}
			configuration, configurationError := loadConfiguration(*configFilePath)
			if configurationError != nil {
				return configurationError
			}
			settings := resolveStreamSettings(command, flags, configuration.Content)
			return runContent(loggerInstance, arguments, settings)
		},
	}

	addStreamFlags(contentCommand, &flags)
	contentCommand.Flags().BoolVar(&flags.includeBinary, includeBinaryFlagName, false, includeBinaryFlagDescription)
	contentCommand.Flags().StringVar(&flags.encodingName, encodingFlagName, extract.DefaultEncodingName, encodingFlagDescription)
	contentCommand.Flags().StringVar(&flags.errorsPolicy, errorsFlagName, string(extract.ErrorPolicyRaise), errorsFlagDescription)
	return contentCommand
}

// createConfigCommand returns the config subcommand with its init child.
func createConfigCommand() *cobra.Command {
	configCommand := &cobra.Command{
		Use:   configUse,
		Short: configShortDescription,
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
	}

	var writeGlobal bool
	var force bool
	initCommand := &cobra.Command{
		Use:   configInitUse,
		Short: initShortDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			target := config.InitTargetLocal
			if writeGlobal {
				target = config.InitTargetGlobal
			}
			writtenPath, initError := config.InitializeConfiguration(config.InitOptions{Target: target, Force: force})
			if initError != nil {
				return initError
			}
			fmt.Printf("Wrote configuration to %s\n", writtenPath)
			return nil
		},
	}
	initCommand.Flags().BoolVar(&writeGlobal, globalFlagName, false, globalFlagDescription)
	initCommand.Flags().BoolVar(&force, forceFlagName, false, forceFlagDescription)
	configCommand.AddCommand(initCommand)
	return configCommand
}

func loadConfiguration(explicitFilePath string) (config.ApplicationConfiguration, error) {
	workingDirectory, workingDirectoryError := os.Getwd()
	if workingDirectoryError != nil {
		return config.ApplicationConfiguration{}, fmt.Errorf(workingDirectoryErrorFormat, workingDirectoryError)
	}
	return config.LoadApplicationConfiguration(config.LoadOptions{
		WorkingDirectory: workingDirectory,
		ExplicitFilePath: explicitFilePath,
	})
}

// validatedPath is an input path resolved to absolute form.
type validatedPath struct {
	givenPath    string
	absolutePath string
	isDirectory  bool
}

// summaryTracker accumulates the per-file statistics reported after a run.
type summaryTracker struct {
	fileCount  int
	totalBytes int64
	tokenCount int
}

func (tracker *summaryTracker) addFile(byteCount int64) {
	tracker.fileCount++
	tracker.totalBytes += byteCount
}

func (tracker *summaryTracker) print(settings streamSettings, tokenModel string) {
	line := fmt.Sprintf(summaryLineFormat, tracker.fileCount, utils.FormatFileSize(tracker.totalBytes))
	if settings.tokensEnabled {
		line += fmt.Sprintf(summaryTokensFormat, tracker.tokenCount, tokenModel)
	}
	fmt.Fprintln(os.Stderr, line)
}

// runTree renders one box-glyph tree per validated path.
func runTree(loggerInstance *zap.Logger, paths []string, settings streamSettings) error {
	validatedPaths, pathValidationError := resolveAndValidatePaths(paths)
	if pathValidationError != nil {
		return pathValidationError
	}

	tokenCounter, tokenModel, counterError := buildTokenCounter(settings)
	if counterError != nil {
		return counterError
	}

	outputWriter, finishOutput := buildOutputWriter(settings)
	tracker := &summaryTracker{}
	warn := warnCallback(loggerInstance)

	for _, path := range validatedPaths {
		ignorePatterns, loadError := loadTreeIgnorePatterns(path, settings)
		if loadError != nil {
			return loadError
		}

		walkOptions := walk.Options{
			FollowSymlinks: settings.followSymlinks,
			Include:        config.BuildIncludePredicate(ignorePatterns),
			OnError:        warn,
		}
		treeWriter := render.NewTreeWriter(outputWriter, render.Options{RootLabel: path.givenPath})

		producer := func(streamCtx context.Context, eventChannel chan<- walk.Event) error {
			return walk.Walk(path.absolutePath, walkOptions, func(event walk.Event) error {
				select {
				case <-streamCtx.Done():
					return streamCtx.Err()
				case eventChannel <- event:
					return nil
				}
			})
		}

		consumer := func(event walk.Event) error {
			if event.Kind == walk.EventFile && event.Node.Kind == walk.KindFile {
				if info, statError := os.Stat(event.Node.Path); statError == nil {
					tracker.addFile(info.Size())
				} else {
					tracker.addFile(0)
				}
				if tokenCounter != nil && !utils.IsFileBinary(event.Node.Path) {
					countResult, countError := tokenizer.CountFile(tokenCounter, event.Node.Path)
					if countError != nil {
						warn(event.Node.Path, countError)
					} else if countResult.Counted {
						tracker.tokenCount += countResult.Tokens
					}
				}
			}
			return treeWriter.Handle(event)
		}

		if streamError := dispatchStream(context.Background(), producer, consumer); streamError != nil {
			return streamError
		}
		if flushError := treeWriter.Flush(); flushError != nil {
			return flushError
		}
	}

	if finishError := finishOutput(); finishError != nil {
		return finishError
	}
	if settings.summaryEnabled {
		tracker.print(settings, tokenModel)
	}
	return nil
}

// runContent emits one combined delimited bundle for all validated paths.
func runContent(loggerInstance *zap.Logger, paths []string, settings streamSettings) error {
	validatedPaths, pathValidationError := resolveAndValidatePaths(paths)
	if pathValidationError != nil {
		return pathValidationError
	}

	tokenCounter, tokenModel, counterError := buildTokenCounter(settings)
	if counterError != nil {
		return counterError
	}

	outputWriter, finishOutput := buildOutputWriter(settings)
	tracker := &summaryTracker{}
	warn := warnCallback(loggerInstance)
	recordIndex := 0

	for _, path := range validatedPaths {
		ignorePatterns, binaryPatterns, loadError := loadContentIgnorePatterns(path, settings)
		if loadError != nil {
			return loadError
		}

		extractOptions := extract.Options{
			FollowSymlinks:        settings.followSymlinks,
			Include:               config.BuildIncludePredicate(ignorePatterns),
			IncludeBinary:         settings.includeBinary,
			Encoding:              settings.encodingName,
			Errors:                extract.ErrorPolicy(settings.errorsPolicy),
			BinaryContentPatterns: binaryPatterns,
			OnError:               warn,
		}

		producer := func(streamCtx context.Context, recordChannel chan<- extract.Record) error {
			return extract.Stream(path.absolutePath, extractOptions, func(record extract.Record) error {
				select {
				case <-streamCtx.Done():
					return streamCtx.Err()
				case recordChannel <- record:
					return nil
				}
			})
		}

		consumer := func(record extract.Record) error {
			if writeError := writeBundleRecord(outputWriter, record, recordIndex); writeError != nil {
				return writeError
			}
			recordIndex++
			tracker.addFile(int64(len(record.Content)))
			if tokenCounter != nil && !record.Skipped && record.ContentEncoding == "" {
				countResult, countError := tokenizer.CountBytes(tokenCounter, []byte(record.Content))
				if countError != nil {
					warn(record.Path, countError)
				} else if countResult.Counted {
					tracker.tokenCount += countResult.Tokens
				}
			}
			return nil
		}

		if streamError := dispatchStream(context.Background(), producer, consumer); streamError != nil {
			return streamError
		}
	}

	if finishError := finishOutput(); finishError != nil {
		return finishError
	}
	if settings.summaryEnabled {
		tracker.print(settings, tokenModel)
	}
	return nil
}

// writeBundleRecord renders one record in the delimited bundle format,
// separating consecutive records with one blank line.
func writeBundleRecord(outputWriter io.Writer, record extract.Record, recordIndex int) error {
	body := record.Content
	if record.Skipped {
		body = record.Reason
	}
	separator := ""
	if recordIndex > 0 {
		separator = "\n"
	}
	_, writeError := fmt.Fprintf(outputWriter, "%s===== FILE: %s =====\n%s\n===== END FILE =====\n", separator, record.RelativePath, body)
	return writeError
}

func buildTokenCounter(settings streamSettings) (tokenizer.Counter, string, error) {
	if !settings.tokensEnabled {
		return nil, "", nil
	}
	return tokenizer.NewCounter(tokenizer.Config{Model: settings.tokenizerModel})
}

// buildOutputWriter returns the destination writer and a finish function
// that copies the captured output to the clipboard when requested.
func buildOutputWriter(settings streamSettings) (io.Writer, func() error) {
	if !settings.copyToClipboard {
		return os.Stdout, func() error { return nil }
	}
	var captured strings.Builder
	writer := io.MultiWriter(os.Stdout, &captured)
	return writer, func() error {
		return clipboard.NewService().Copy(captured.String())
	}
}

func warnCallback(loggerInstance *zap.Logger) func(path string, failure error) {
	return func(path string, failure error) {
		loggerInstance.Warn(fmt.Sprintf(warningSkipPathFormat, path, failure))
	}
}

func loadTreeIgnorePatterns(path validatedPath, settings streamSettings) ([]string, error) {
	if !path.isDirectory {
		return nil, nil
	}
	patterns, _, loadError := config.LoadRecursiveIgnorePatterns(path.absolutePath, settings.exclusionPatterns, settings.useGitignore, settings.useIgnoreFile, settings.includeGit)
	return patterns, loadError
}

func loadContentIgnorePatterns(path validatedPath, settings streamSettings) ([]string, []string, error) {
	if !path.isDirectory {
		return nil, nil, nil
	}
	return config.LoadRecursiveIgnorePatterns(path.absolutePath, settings.exclusionPatterns, settings.useGitignore, settings.useIgnoreFile, settings.includeGit)
}

// dispatchStream runs a producer and consumer under one errgroup, moving
// events through an unbuffered channel so output stays ordered while the
// producer keeps traversing.
func dispatchStream[EventType any](
	ctx context.Context,
	produce func(context.Context, chan<- EventType) error,
	consume func(EventType) error,
) error {
	group, streamCtx := errgroup.WithContext(ctx)
	events := make(chan EventType)

	group.Go(func() error {
		defer close(events)
		return produce(streamCtx, events)
	})

	group.Go(func() error {
		for {
			select {
			case <-streamCtx.Done():
				return streamCtx.Err()
			case event, ok := <-events:
				if !ok {
					return nil
				}
				if err := consume(event); err != nil {
					return err
				}
			}
		}
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// resolveAndValidatePaths converts input paths to absolute form and validates their existence.
func resolveAndValidatePaths(inputs []string) ([]validatedPath, error) {
	seen := make(map[string]struct{})
	var result []validatedPath
	for _, inputPath := range inputs {
		absolutePath, absolutePathError := filepath.Abs(inputPath)
		if absolutePathError != nil {
			return nil, fmt.Errorf(errorAbsolutePathFormat, inputPath, absolutePathError)
		}
		cleanPath := filepath.Clean(absolutePath)
		if _, ok := seen[cleanPath]; ok {
			continue
		}
		info, fileStatusError := os.Stat(cleanPath)
		if fileStatusError != nil {
			if os.IsNotExist(fileStatusError) {
				return nil, fmt.Errorf(errorPathMissingFormat, inputPath)
			}
			return nil, fmt.Errorf(errorStatFormat, inputPath, fileStatusError)
		}
		seen[cleanPath] = struct{}{}
		result = append(result, validatedPath{
			givenPath:    filepath.Clean(inputPath),
			absolutePath: cleanPath,
			isDirectory:  info.IsDir(),
		})
	}
	if len(result) == 0 {
		return nil, fmt.Errorf(errorNoValidPaths)
	}
	return result, nil
}
