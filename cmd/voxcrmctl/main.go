package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"voxcrm/internal/profile"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	serverFlag := flag.String("server", "", "server URL (overrides config)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Parse()

	profileName := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(profileName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	serverURL := profile.ServerURL(*serverFlag)

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	a, err := openApp(profileName, serverURL, *jsonFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer a.close()

	switch args[0] {
	case "signup":
		a.cmdSignup(args[1:])
	case "login":
		a.cmdLogin(args[1:])
	case "logout":
		a.cmdLogout()
	case "whoami":
		a.cmdWhoami()
	case "contacts":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: voxcrmctl contacts <list|add>")
			os.Exit(1)
		}
		switch args[1] {
		case "list":
			a.cmdContactsList()
		case "add":
			a.cmdContactsAdd(args[2:])
		default:
			fmt.Fprintf(os.Stderr, "unknown contacts subcommand: %s\n", args[1])
			os.Exit(1)
		}
	case "open":
		a.cmdOpen(args[1:])
	case "fav":
		a.cmdFav(args[1:])
	case "recents":
		a.cmdRecents()
	case "favorites":
		a.cmdFavorites()
	case "clear":
		a.cmdClear(args[1:])
	case "refresh":
		a.cmdRefresh()
	case "status":
		a.cmdStatus()
	case "draft":
		a.cmdDraft(args[1:])
	case "approve":
		a.cmdApprove(args[1:])
	case "emails":
		a.cmdEmails()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: voxcrmctl [--profile <name>] [--server <url>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  signup <username> <email>          Create an account")
	fmt.Fprintln(os.Stderr, "  login <username>                   Log in and store tokens")
	fmt.Fprintln(os.Stderr, "  logout                             Log out and drop tokens")
	fmt.Fprintln(os.Stderr, "  whoami                             Show the authenticated user")
	fmt.Fprintln(os.Stderr, "  contacts list                      List all contacts")
	fmt.Fprintln(os.Stderr, "  contacts add <name> [email]        Add a contact")
	fmt.Fprintln(os.Stderr, "  open <contact-id>                  Mark a contact as recently viewed")
	fmt.Fprintln(os.Stderr, "  fav <contact-id>                   Toggle a contact's favorite flag")
	fmt.Fprintln(os.Stderr, "  recents                            Show recently viewed contacts")
	fmt.Fprintln(os.Stderr, "  favorites                          Show favorite contacts")
	fmt.Fprintln(os.Stderr, "  clear <recents|favorites>          Clear a collection")
	fmt.Fprintln(os.Stderr, "  refresh                            Force a server refresh and merge")
	fmt.Fprintln(os.Stderr, "  status                             Show sync status")
	fmt.Fprintln(os.Stderr, "  draft <contact-id> <rel.mp3> <content.mp3>  Generate an email draft")
	fmt.Fprintln(os.Stderr, "  approve <draft-id>                 Approve a generated draft")
	fmt.Fprintln(os.Stderr, "  emails                             List approved emails")
}

func outputJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}
