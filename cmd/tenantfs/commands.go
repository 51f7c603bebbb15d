package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/GriffinCanCode/tenantfs/internal/providers/filesystem"
	"github.com/bytedance/sonic"
)

func dispatch(ctx context.Context, svc *filesystem.Service, opts options, args []string) error {
	command, args := args[0], args[1:]
	t := opts.tenantID

	switch command {
	case "ls":
		entries, err := svc.List(ctx, t, optional(args, 0, ""))
		return printJSON(entries, err)

	case "cat":
		if err := need(command, args, 1); err != nil {
			return err
		}
		content, err := svc.Read(ctx, t, args[0])
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(content.Data)
		return err

	case "write":
		if err := need(command, args, 1); err != nil {
			return err
		}
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		entry, err := svc.Write(ctx, t, args[0], data)
		return printJSON(entry, err)

	case "mkdir", "touch":
		if err := need(command, args, 1); err != nil {
			return err
		}
		kind := filesystem.KindFile
		if command == "mkdir" {
			kind = filesystem.KindDirectory
		}
		entry, err := svc.Create(ctx, t, args[0], kind)
		return printJSON(entry, err)

	case "rm":
		if err := need(command, args, 1); err != nil {
			return err
		}
		return svc.Delete(ctx, t, args[0])

	case "mv":
		if err := need(command, args, 2); err != nil {
			return err
		}
		entry, err := svc.Rename(ctx, t, args[0], args[1])
		return printJSON(entry, err)

	case "find", "glob":
		if err := need(command, args, 1); err != nil {
			return err
		}
		dir, pattern := "", args[0]
		if len(args) > 1 {
			dir, pattern = args[0], args[1]
		}
		search := svc.Search
		if command == "glob" {
			search = svc.Glob
		}
		entries, err := search(ctx, t, dir, pattern)
		return printJSON(entries, err)

	case "du":
		usage, err := svc.DiskUsage(ctx, t)
		return printJSON(map[string]int64{"bytes": usage}, err)

	case "upload":
		if err := need(command, args, 2); err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		result, err := svc.Upload(ctx, t, args[1], data, opts.extract)
		return printJSON(result, err)

	case "sweep":
		olderThan, err := time.ParseDuration(opts.olderThan)
		if err != nil {
			return usageError{fmt.Errorf("--older-than: %w", err)}
		}
		removed, err := svc.SweepStaleWorkspaces(ctx, t, optional(args, 0, ""), olderThan)
		return printJSON(map[string][]string{"removed": removed}, err)

	default:
		return usageError{fmt.Errorf("unknown command %q", command)}
	}
}

func need(command string, args []string, n int) error {
	if len(args) < n {
		return usageError{fmt.Errorf("%s needs %d argument(s)", command, n)}
	}
	return nil
}

func optional(args []string, i int, fallback string) string {
	if len(args) > i {
		return args[i]
	}
	return fallback
}

func printJSON(v interface{}, err error) error {
	if err != nil {
		return err
	}
	out, err := sonic.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, string(out))
	return err
}
