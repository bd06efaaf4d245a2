package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/levenlabs/go-lflag"
	"github.com/solarslot/solarslot/pkg/log"
	"github.com/solarslot/solarslot/pkg/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	chargersCollection = "chargers"
	bookingsCollection = "bookings"
)

// FirestoreProvider implements the Database interface using Google Cloud
// Firestore. Each document stores the full record as a JSON string plus the
// fields used in queries.
type FirestoreProvider struct {
	client    *firestore.Client
	projectID string
	database  string
	now       func() time.Time
}

// configuredFirestore sets up the Firestore provider.
// It registers flags for configuration.
func configuredFirestore() *FirestoreProvider {
	projectID := lflag.String("firestore-project-id", "", "Google Cloud Project ID for Firestore")
	database := lflag.String("firestore-database", "", "Google Cloud Firestore Database")
	emulator := lflag.String("firestore-emulator", "", "Use Firestore emulator")

	f := &FirestoreProvider{now: time.Now}

	lflag.Do(func() {
		f.projectID = *projectID
		f.database = *database

		// set this because that's how firestore client expects it
		if *emulator != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
		}
	})

	return f
}

// Validate checks if the provider is properly configured.
func (f *FirestoreProvider) Validate() error {
	// an empty project ID is detected from the environment
	return nil
}

// Init initializes the Firestore client.
// This must be called before using the provider methods.
func (f *FirestoreProvider) Init(ctx context.Context) error {
	projectID := f.projectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	database := f.database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return fmt.Errorf("failed to create firestore client (project=%s, database=%s): %w", projectID, database, err)
	}
	f.client = client
	if f.now == nil {
		f.now = time.Now
	}
	return nil
}

// Close closes the Firestore client connection.
func (f *FirestoreProvider) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func (f *FirestoreProvider) chargers() *firestore.CollectionRef {
	return f.client.Collection(chargersCollection)
}

func (f *FirestoreProvider) bookings() *firestore.CollectionRef {
	return f.client.Collection(bookingsCollection)
}

// decodeDoc unmarshals the "json" field of a document.
func decodeDoc[T any](ctx context.Context, doc *firestore.DocumentSnapshot) (T, error) {
	var v T
	val, err := doc.DataAt("json")
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "doc missing json", slog.String("path", doc.Ref.Path), slog.Any("err", err))
		return v, fmt.Errorf("document %s missing 'json' field: %w", doc.Ref.ID, err)
	}
	jsonStr, ok := val.(string)
	if !ok {
		log.Ctx(ctx).WarnContext(ctx, "doc json not string", slog.String("path", doc.Ref.Path))
		return v, fmt.Errorf("document %s 'json' field is not a string", doc.Ref.ID)
	}
	if err := json.Unmarshal([]byte(jsonStr), &v); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal doc json", slog.String("path", doc.Ref.Path), slog.Any("err", err))
		return v, fmt.Errorf("failed to unmarshal document %s: %w", doc.Ref.ID, err)
	}
	return v, nil
}

func chargerData(c types.Charger, created time.Time) (map[string]interface{}, error) {
	jsonBytes, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal charger: %w", err)
	}
	return map[string]interface{}{
		"json":       string(jsonBytes),
		"created_at": created,
	}, nil
}

func bookingData(b types.Booking) (map[string]interface{}, error) {
	jsonBytes, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal booking: %w", err)
	}
	return map[string]interface{}{
		"json":       string(jsonBytes),
		"user_id":    b.UserID,
		"charger_id": b.ChargerID,
	}, nil
}

// ListChargers implements Database.
func (f *FirestoreProvider) ListChargers(ctx context.Context, exclude ...types.ChargerStatus) ([]types.Charger, error) {
	iter := f.chargers().OrderBy("created_at", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var chargers []types.Charger
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating chargers: %w", err)
		}
		c, err := decodeDoc[types.Charger](ctx, doc)
		if err != nil {
			return nil, err
		}
		if excluded(c, exclude) {
			continue
		}
		chargers = append(chargers, c)
	}
	return chargers, nil
}

// GetCharger implements Database.
func (f *FirestoreProvider) GetCharger(ctx context.Context, chargerID string) (types.Charger, error) {
	if chargerID == "" {
		return types.Charger{}, ErrChargerNotFound
	}
	doc, err := f.chargers().Doc(chargerID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return types.Charger{}, ErrChargerNotFound
		}
		return types.Charger{}, fmt.Errorf("failed to get charger: %w", err)
	}
	return decodeDoc[types.Charger](ctx, doc)
}

// AddCharger implements Database.
func (f *FirestoreProvider) AddCharger(ctx context.Context, charger types.Charger) (types.Charger, error) {
	if charger.ID == "" {
		charger.ID = uuid.NewString()
	}
	if charger.Status == "" {
		charger.Status = types.ChargerStatusAvailable
	}
	data, err := chargerData(charger, f.now())
	if err != nil {
		return types.Charger{}, err
	}
	if _, err := f.chargers().Doc(charger.ID).Create(ctx, data); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return types.Charger{}, fmt.Errorf("charger %s already exists: %w", charger.ID, err)
		}
		return types.Charger{}, fmt.Errorf("failed to add charger: %w", err)
	}
	return charger, nil
}

// decodeBookings drains iter into bookings.
func (f *FirestoreProvider) decodeBookings(ctx context.Context, iter *firestore.DocumentIterator) ([]types.Booking, error) {
	defer iter.Stop()
	var bookings []types.Booking
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating bookings: %w", err)
		}
		b, err := decodeDoc[types.Booking](ctx, doc)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, nil
}

// chargerBookingsQuery matches every booking for a charger. Intervals are
// filtered by the callers so no composite index is needed.
func (f *FirestoreProvider) chargerBookingsQuery(chargerID string) firestore.Query {
	return f.bookings().Where("charger_id", "==", chargerID)
}

// FindOverlaps implements Database.
func (f *FirestoreProvider) FindOverlaps(ctx context.Context, chargerID string, start, end time.Time) ([]types.Booking, error) {
	bookings, err := f.decodeBookings(ctx, f.chargerBookingsQuery(chargerID).Documents(ctx))
	if err != nil {
		return nil, err
	}
	var overlaps []types.Booking
	for _, b := range bookings {
		if blocking(b, start, end) {
			overlaps = append(overlaps, b)
		}
	}
	return overlaps, nil
}

// IsAvailable implements Database.
func (f *FirestoreProvider) IsAvailable(ctx context.Context, chargerID string, at time.Time) (bool, error) {
	c, err := f.GetCharger(ctx, chargerID)
	if err != nil {
		if errors.Is(err, ErrChargerNotFound) {
			return false, nil
		}
		return false, err
	}
	if c.Status == types.ChargerStatusMaintenance {
		return false, nil
	}
	bookings, err := f.decodeBookings(ctx, f.chargerBookingsQuery(chargerID).Documents(ctx))
	if err != nil {
		return false, err
	}
	for _, b := range bookings {
		if active(b, at) {
			return false, nil
		}
	}
	return true, nil
}

// CreateBooking implements Database. The overlap check and insert run in one
// transaction so concurrent requests for the same slot can't both succeed.
func (f *FirestoreProvider) CreateBooking(ctx context.Context, booking types.Booking) (types.Booking, error) {
	if err := validateBooking(booking); err != nil {
		return types.Booking{}, err
	}
	booking.ID = uuid.NewString()
	booking.Status = types.BookingStatusConfirmed
	booking.CreatedAt = f.now()

	data, err := bookingData(booking)
	if err != nil {
		return types.Booking{}, err
	}

	err = f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		chargerDoc, err := tx.Get(f.chargers().Doc(booking.ChargerID))
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return ErrChargerNotFound
			}
			return fmt.Errorf("failed to get charger: %w", err)
		}
		c, err := decodeDoc[types.Charger](ctx, chargerDoc)
		if err != nil {
			return err
		}
		if c.Status == types.ChargerStatusMaintenance {
			return ErrChargerUnavailable
		}

		existing, err := f.decodeBookings(ctx, tx.Documents(f.chargerBookingsQuery(booking.ChargerID)))
		if err != nil {
			return err
		}
		for _, b := range existing {
			if blocking(b, booking.Start, booking.End) {
				log.Ctx(ctx).InfoContext(
					ctx,
					"booking overlap found",
					slog.String("chargerID", booking.ChargerID),
					slog.String("existingID", b.ID),
				)
				return ErrBookingConflict
			}
		}
		return tx.Create(f.bookings().Doc(booking.ID), data)
	})
	if err != nil {
		if errors.Is(err, ErrBookingConflict) || errors.Is(err, ErrChargerNotFound) || errors.Is(err, ErrChargerUnavailable) {
			return types.Booking{}, err
		}
		return types.Booking{}, fmt.Errorf("failed to create booking: %w", err)
	}
	return booking, nil
}

// CancelBooking implements Database.
func (f *FirestoreProvider) CancelBooking(ctx context.Context, bookingID, userID string) error {
	if bookingID == "" {
		return ErrBookingNotFound
	}
	ref := f.bookings().Doc(bookingID)
	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return ErrBookingNotFound
			}
			return fmt.Errorf("failed to get booking: %w", err)
		}
		b, err := decodeDoc[types.Booking](ctx, doc)
		if err != nil {
			return err
		}
		if userID != "" && b.UserID != userID {
			return ErrBookingNotFound
		}
		b.Status = types.BookingStatusCancelled
		data, err := bookingData(b)
		if err != nil {
			return err
		}
		return tx.Set(ref, data)
	})
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			return err
		}
		return fmt.Errorf("failed to cancel booking: %w", err)
	}
	return nil
}

// ListUserBookings implements Database.
func (f *FirestoreProvider) ListUserBookings(ctx context.Context, userID string, now time.Time, limit int) ([]types.Booking, error) {
	bookings, err := f.decodeBookings(ctx, f.bookings().Where("user_id", "==", userID).Documents(ctx))
	if err != nil {
		return nil, err
	}
	var future []types.Booking
	for _, b := range bookings {
		if !b.End.Before(now) {
			future = append(future, b)
		}
	}
	return upcoming(future, limit), nil
}

// ClearHistory implements Database.
func (f *FirestoreProvider) ClearHistory(ctx context.Context, userID string) (int, error) {
	all, err := f.bookings().Where("user_id", "==", userID).Documents(ctx).GetAll()
	if err != nil {
		return 0, fmt.Errorf("failed to list booking history: %w", err)
	}
	var docs []*firestore.DocumentSnapshot
	for _, doc := range all {
		b, err := decodeDoc[types.Booking](ctx, doc)
		if err != nil {
			return 0, err
		}
		if clearable(b) {
			docs = append(docs, doc)
		}
	}
	if len(docs) == 0 {
		return 0, nil
	}

	bw := f.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(docs))
	for _, doc := range docs {
		job, err := bw.Delete(doc.Ref)
		if err != nil {
			bw.End()
			return 0, fmt.Errorf("failed to queue delete of booking %s: %w", doc.Ref.ID, err)
		}
		jobs = append(jobs, job)
	}
	bw.End()

	var deleted int
	for i, job := range jobs {
		if _, err := job.Results(); err != nil {
			return deleted, fmt.Errorf("failed to delete booking %s: %w", docs[i].Ref.ID, err)
		}
		deleted++
	}
	log.Ctx(ctx).DebugContext(ctx, "cleared booking history", slog.String("userID", userID), slog.Int("count", deleted))
	return deleted, nil
}
