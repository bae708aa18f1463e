package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/umoja/core/syncer"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	confirmFunc      = confirmPrompt    // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	sync *syncer.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  resync - refetch all collections from the row store")
	fmt.Println("  addmember -name NAME -mobile MOBILE -blood GROUP [-designation DESIGNATION] - add a member; the password will be prompted next")
	fmt.Println("  clearmessages - wipe the whole chat history (asks for confirmation)")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addMemberCmd := flag.NewFlagSet("addmember", flag.ExitOnError)
	addMemberName := addMemberCmd.String("name", "", "The member's full name.")
	addMemberMobile := addMemberCmd.String("mobile", "", "The member's mobile number. Doubles as the login identifier.")
	addMemberDesignation := addMemberCmd.String("designation", "সদস্য", "The member's designation.")
	addMemberBlood := addMemberCmd.String("blood", "", "The member's blood group.")

	switch args[1] {
	case "resync":
		return cli.resync()
	case "addmember":
		if err := addMemberCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addMemberName == "" || *addMemberMobile == "" || *addMemberBlood == "" {
			addMemberCmd.Usage()
			return errHelp
		}
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			addMemberCmd.Usage()
			return errHelp
		}
		return cli.addMember(*addMemberName, *addMemberMobile, *addMemberDesignation, *addMemberBlood, string(pwd))
	case "clearmessages":
		if !confirmFunc("This wipes the whole chat history. Continue?") {
			return errHelp
		}
		return cli.clearMessages()
	default:
		cli.printUsage()
		return errHelp
	}
}

func confirmPrompt(question string) bool {
	fmt.Printf("%s [y/N]: ", question)
	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(answer), "y")
}
