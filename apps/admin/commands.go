package main

import (
	"context"
	"fmt"

	"github.com/trezcool/umoja/core/member"
	"github.com/trezcool/umoja/core/record"
	"github.com/trezcool/umoja/core/syncer"
)

// resync runs a full fetch and reports any collection that failed.
func (cli *commandLine) resync() error {
	err := cli.sync.Refresh(context.Background())
	if serr, ok := err.(*syncer.SyncError); ok {
		return fmt.Errorf("resync incomplete; failed collections: %v", serr.Collections())
	}
	if err != nil {
		return err
	}

	snap := cli.sync.Snapshot()
	fmt.Printf(
		"resynced: %d members, %d schools, %d students, %d updates, %d gallery items, %d transactions, %d messages\n",
		len(snap.Members), len(snap.Schools), len(snap.Students),
		len(snap.Updates), len(snap.Gallery), len(snap.Transactions), len(snap.Messages),
	)
	return nil
}

// addMember registers a new profile row directly against the store.
func (cli *commandLine) addMember(name, mobile, designation, blood, pwd string) error {
	nm := member.NewMember{
		Name:        name,
		Designation: designation,
		Mobile:      mobile,
		Password:    pwd,
		BloodGroup:  blood,
	}
	if err := nm.Validate(); err != nil {
		return err
	}
	mbr, err := nm.Member()
	if err != nil {
		return err
	}

	raw := record.RawData{
		"name":        mbr.Name,
		"designation": mbr.Designation,
		"mobile":      mbr.Mobile,
		"blood_group": mbr.BloodGroup,
		"address":     mbr.Address,
		"profile_pic": mbr.ProfilePic,
		"password":    mbr.Password,
		"email":       "",
	}
	if err = cli.sync.Save(context.Background(), record.KindMember, raw, ""); err != nil {
		return err
	}
	fmt.Printf("member %q added\n", mbr.Name)
	return nil
}

func (cli *commandLine) clearMessages() error {
	if err := cli.sync.ClearMessages(context.Background()); err != nil {
		return err
	}
	fmt.Println("chat history cleared")
	return nil
}
