package migrations

import (
	"fmt"

	"gorm.io/gorm"
)

// PrepareSchema runs the steps AutoMigrate cannot do on its own against an
// existing database. It must run before AutoMigrate.
func PrepareSchema(db *gorm.DB) error {
	if db == nil {
		return nil
	}

	steps := []struct {
		id string
		fn func(*gorm.DB) error
	}{
		{"pre_00001_chat_messages_conversation_user_id", addConversationUserID},
	}

	for _, step := range steps {
		if err := RunOnce(db, step.id, step.fn); err != nil {
			return err
		}
	}
	return nil
}

// addConversationUserID moves chat_messages from one thread per author to
// one thread per user. Existing messages were all written by the user the
// thread belongs to. AutoMigrate would try to add the column as NOT NULL
// with no default, which fails on a table with rows.
func addConversationUserID(db *gorm.DB) error {
	m := db.Migrator()
	if !m.HasTable("chat_messages") {
		return nil
	}

	if !m.HasColumn("chat_messages", "conversation_user_id") {
		if err := db.Exec("ALTER TABLE chat_messages ADD COLUMN conversation_user_id bigint").Error; err != nil {
			return fmt.Errorf("add conversation_user_id: %w", err)
		}
	}

	if err := db.Exec("UPDATE chat_messages SET conversation_user_id = user_id WHERE conversation_user_id IS NULL").Error; err != nil {
		return fmt.Errorf("backfill conversation_user_id: %w", err)
	}

	// sqlite cannot alter a column in place, so it stays nullable there
	if db.Dialector.Name() == "postgres" {
		if err := db.Exec("ALTER TABLE chat_messages ALTER COLUMN conversation_user_id SET NOT NULL").Error; err != nil {
			return fmt.Errorf("set conversation_user_id not null: %w", err)
		}
	}
	return nil
}
