package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"taskapp/internal/ops"

	"github.com/spf13/pflag"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "backup":
		err = cmdBackup(os.Args[2:])
	case "restore":
		err = cmdRestore(os.Args[2:])
	case "drill":
		err = cmdDrill(os.Args[2:])
	default:
		printUsage()
		os.Exit(2)
	}
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s failed: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func cmdBackup(args []string) error {
	fs := pflag.NewFlagSet("backup", pflag.ContinueOnError)
	tasksDir := fs.String("tasks-dir", filepath.Join("data", "tasks"), "directory holding the month files")
	out := fs.String("out", "", "output archive path (.tar.gz)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *out == "" {
		ts := time.Now().UTC().Format("20060102T150405Z")
		*out = filepath.Join("backups", "taskapp-"+ts+".tar.gz")
	}

	n, err := ops.BackupLedger(*tasksDir, *out)
	if err != nil {
		return err
	}
	fmt.Printf("%s (%d months)\n", *out, n)
	return nil
}

func cmdRestore(args []string) error {
	fs := pflag.NewFlagSet("restore", pflag.ContinueOnError)
	archive := fs.String("archive", "", "input backup archive (.tar.gz)")
	target := fs.String("target-dir", "tasks-restored", "restore target directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *archive == "" {
		return fmt.Errorf("archive is required")
	}
	n, err := ops.RestoreLedger(*archive, *target)
	if err != nil {
		return err
	}
	fmt.Printf("restored %d months into %s\n", n, *target)
	return nil
}

func cmdDrill(args []string) error {
	fs := pflag.NewFlagSet("drill", pflag.ContinueOnError)
	tasksDir := fs.String("tasks-dir", filepath.Join("data", "tasks"), "directory holding the month files")
	workDir := fs.String("work-dir", os.TempDir(), "temporary workspace for drill artifacts")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := os.MkdirAll(*workDir, 0o755); err != nil {
		return err
	}
	ts := time.Now().UTC().Format("20060102T150405Z")
	archive := filepath.Join(*workDir, "taskapp-drill-"+ts+".tar.gz")
	restoreDir := filepath.Join(*workDir, "taskapp-drill-restore-"+ts)

	if _, err := ops.BackupLedger(*tasksDir, archive); err != nil {
		return err
	}
	if _, err := ops.RestoreLedger(archive, restoreDir); err != nil {
		return err
	}

	srcDigest, err := ops.Digest(*tasksDir)
	if err != nil {
		return err
	}
	restoreDigest, err := ops.Digest(restoreDir)
	if err != nil {
		return err
	}
	if srcDigest != restoreDigest {
		return fmt.Errorf("digest mismatch after restore: src=%s restored=%s", srcDigest, restoreDigest)
	}

	fmt.Println("backup:", archive)
	fmt.Println("restored:", restoreDir)
	fmt.Println("digest:", srcDigest)
	return nil
}

func printUsage() {
	fmt.Println("usage:")
	fmt.Println("  taskapp-ops backup  --tasks-dir data/tasks --out backups/backup.tar.gz")
	fmt.Println("  taskapp-ops restore --archive backups/backup.tar.gz --target-dir tasks-restored")
	fmt.Println("  taskapp-ops drill   --tasks-dir data/tasks --work-dir /tmp")
}
