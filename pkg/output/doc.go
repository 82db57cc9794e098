/*
Package output persists transformed files for splice.

🎯 Purpose:
- Compares new content with the target by sha256 checksum
- Writes changed files atomically (temp file + rename), keeping permissions
- Mirrors files under an output directory instead of overwriting
- Renders unified diffs for review without touching the disk

📝 Modes:
  - ModeOverwrite: replace the source file in place
  - ModeOutDir: write to OutDir, mirroring the path relative to BaseDir
  - ModeDiff: print a diff of each changed file
  - ModeDryRun: only report FileStatus

🔍 Example:

	w, err := output.NewWriter(output.Options{Mode: output.ModeOverwrite})
	if err != nil {
		return err
	}
	info, err := w.Write(ctx, path, original, updated)
	if err != nil {
		return err
	}
	fmt.Println(info.Status) // modified
*/
package output
