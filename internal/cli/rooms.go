package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thousandtech/chatroom/internal/cache"
	"github.com/thousandtech/chatroom/internal/chat"
	"github.com/thousandtech/chatroom/internal/client"
)

func newRoomsCmd() *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:   "rooms",
		Short: "List rooms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			var (
				rooms []chat.RoomInfo
				err   error
			)
			if offline {
				store, openErr := cache.Open(appConfig.CachePath())
				if openErr != nil {
					return openErr
				}
				defer store.Close()
				rooms, err = store.Rooms(ctx)
			} else {
				rooms, err = newAPI(appConfig).Rooms(ctx)
			}
			if err != nil {
				return err
			}
			return writeRooms(cmd.OutOrStdout(), rooms, offline)
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "list rooms in the local transcript cache")
	cmd.AddCommand(newRoomsCreateCmd())
	return cmd
}

func newRoomsCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <id> <name...>",
		Short: "Create a room",
		Long:  "Create a room. The id may only contain letters, digits, underscore and dash.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			name := strings.TrimSpace(strings.Join(args[1:], " "))
			if err := client.ValidateRoomID(id); err != nil {
				return err
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()
			result, err := newAPI(appConfig).CreateRoom(ctx, id, name)
			if err != nil {
				if errors.Is(err, client.ErrRejected) {
					return Exitf(ExitCodeRejected, "room %s was not created: %s", id, result.Msg)
				}
				return err
			}

			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created room %s (%s)\n", id, name)
			return nil
		},
	}
}

func writeRooms(out io.Writer, rooms []chat.RoomInfo, offline bool) error {
	if jsonOutput {
		if rooms == nil {
			rooms = []chat.RoomInfo{}
		}
		return writeJSON(out, rooms)
	}
	if len(rooms) == 0 {
		fmt.Fprintln(out, "No rooms")
		return nil
	}

	if offline {
		tbl := newTable("ROOM", "CACHED")
		for _, room := range rooms {
			tbl.add(room.RoomID, strconv.Itoa(room.MessageCount))
		}
		return tbl.write(out)
	}

	tbl := newTable("ROOM", "NAME", "ONLINE", "MESSAGES")
	for _, room := range rooms {
		tbl.add(
			room.RoomID,
			room.DisplayName(),
			strconv.Itoa(room.UserCount),
			strconv.Itoa(room.MessageCount),
		)
	}
	return tbl.write(out)
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
