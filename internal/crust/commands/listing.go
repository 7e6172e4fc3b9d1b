package commands

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// ListingRow is one row of a long listing: permissions, link count, owner
// id, group id, size, modification date and name.
type ListingRow [7]string

// listingHeader is the first row of every long listing
var listingHeader = ListingRow{"Permissions", "Num Links", "Owner ID", "Group ID", "Bytes", "Modification Date", "File"}

// listingTimeLayout renders the modification date as "Jan 02 15:04"
const listingTimeLayout = "Jan 02 15:04"

var sizeUnits = []string{"", "K", "M", "G", "T"}

type lsOptions struct {
	all   bool
	long  bool
	human bool
	path  string
}

// parseLsArgs separates the path from the dash flags. The first non-dash
// token is the path; later ones are ignored.
func parseLsArgs(args []string) (*lsOptions, error) {
	opts := &lsOptions{}
	var flags []string
	for _, arg := range args {
		if strings.HasPrefix(arg, "-") {
			flags = append(flags, arg)
		} else if opts.path == "" {
			opts.path = arg
		}
	}

	for _, flag := range flags {
		if strings.HasPrefix(flag, "--") {
			switch name := flag[2:]; name {
			case "all":
				opts.all = true
			default:
				return nil, usageError("ls: unknown option --%s", name)
			}
			continue
		}
		for _, letter := range flag[1:] {
			switch letter {
			case 'a':
				opts.all = true
			case 'l':
				opts.long = true
			case 'h':
				opts.human = true
			default:
				return nil, usageError("ls: unknown option -%c", letter)
			}
		}
	}
	return opts, nil
}

// Ls lists the entries of a directory, the working directory by default
func Ls(env *Env, args []string) error {
	opts, err := parseLsArgs(args)
	if err != nil {
		return err
	}

	dir := env.Cwd
	shown := "."
	if opts.path != "" {
		dir = env.Resolve(opts.path)
		shown = opts.path
	}

	info, err := env.Fs.Stat(dir)
	if err != nil {
		if kind := kindOf(err); kind == KindPermission {
			return newError(kind, "ls: %s: Permission denied", shown).wrap(err)
		}
		return newError(KindNotFound, "ls: %s: No such directory", shown).wrap(err)
	}
	if !info.IsDir() {
		return newError(KindNotDir, "ls: %s: Not a directory", shown)
	}

	entries, err := afero.ReadDir(env.Fs, dir)
	if err != nil {
		return newError(kindOf(err), "ls: %s: Permission denied", shown).wrap(err)
	}

	var visible []os.FileInfo
	for _, entry := range entries {
		if !opts.all && strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		visible = append(visible, entry)
	}

	if !opts.long {
		names := make([]string, len(visible))
		for i, entry := range visible {
			names[i] = entry.Name()
		}
		return env.Print(strings.Join(names, " ") + "\n")
	}

	rows := make([]ListingRow, 0, len(visible)+1)
	rows = append(rows, listingHeader)
	for _, entry := range visible {
		// follow symbolic links like stat(2); keep the link itself when broken
		if target, err := env.Fs.Stat(filepath.Join(dir, entry.Name())); err == nil {
			entry = namedInfo{FileInfo: target, name: entry.Name()}
		}
		rows = append(rows, NewListingRow(entry, opts.human))
	}
	return env.Print(FormatListing(rows))
}

// namedInfo keeps the directory entry name for a followed link
type namedInfo struct {
	os.FileInfo
	name string
}

func (n namedInfo) Name() string {
	return n.name
}

// NewListingRow builds the long listing row for one entry
func NewListingRow(info os.FileInfo, human bool) ListingRow {
	links, uid, gid := ownership(info)
	size := strconv.FormatInt(info.Size(), 10)
	if human {
		size = HumanSize(info.Size())
	}
	return ListingRow{
		PermissionString(info),
		strconv.FormatUint(links, 10),
		strconv.FormatUint(uint64(uid), 10),
		strconv.FormatUint(uint64(gid), 10),
		size,
		info.ModTime().Format(listingTimeLayout),
		info.Name(),
	}
}

// PermissionString renders the type flag followed by the nine rwx bits,
// owner first, e.g. "drwxr-x---".
func PermissionString(info os.FileInfo) string {
	var sb strings.Builder
	if info.IsDir() {
		sb.WriteByte('d')
	} else {
		sb.WriteByte('-')
	}
	perm := uint32(info.Mode().Perm())
	const letters = "rwx"
	for bit := 8; bit >= 0; bit-- {
		if perm&(1<<uint(bit)) != 0 {
			sb.WriteByte(letters[(8-bit)%3])
		} else {
			sb.WriteByte('-')
		}
	}
	return sb.String()
}

// HumanSize scales size by powers of 1024 with one decimal place
func HumanSize(size int64) string {
	value := float64(size)
	for i, unit := range sizeUnits {
		if math.Abs(value) < 1024 || i == len(sizeUnits)-1 {
			return fmt.Sprintf("%.1f%s", value, unit)
		}
		value /= 1024
	}
	return ""
}

// FormatListing pads every column except the last to its widest cell,
// joins columns with one space and terminates each row with a newline.
func FormatListing(rows []ListingRow) string {
	var widths [len(ListingRow{}) - 1]int
	for _, row := range rows {
		for col := range widths {
			if n := len(row[col]); n > widths[col] {
				widths[col] = n
			}
		}
	}

	var sb strings.Builder
	for _, row := range rows {
		for col, cell := range row {
			if col > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(cell)
			if col < len(widths) {
				sb.WriteString(strings.Repeat(" ", widths[col]-len(cell)))
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
