// Package sqlite предоставляет встроенное хранилище на SQLite: открытие базы
// с PRAGMA настройками, миграции из встроенной файловой системы (embed.FS)
// и транзакции с повтором при SQLITE_BUSY.
//
// Открытие и миграции:
//
//	//go:embed migrations/*.sql
//	var migrations embed.FS
//
//	if err := sqlite.ApplyMigrations(path, migrations, "migrations"); err != nil {
//		return err
//	}
//	db, err := sqlite.NewDB(ctx, path)
//
// Транзакции:
//
//	runner := sqlite.NewTxRunner(db)
//	err = runner.WithinTx(ctx, func(ctx context.Context) error {
//		_, err := runner.GetQuerier(ctx).ExecContext(ctx, "INSERT INTO decisions ...")
//		return err
//	})
//
// Повторы при SQLITE_BUSY идут через pkg/retry (TxRunner.Retry), ошибки
// вне IsBusy возвращаются сразу. Вложенные транзакции не поддерживаются
// (ErrNestedTx).
package sqlite
